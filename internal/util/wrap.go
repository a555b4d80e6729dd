package util

import (
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	terminal "golang.org/x/term"
)

// OutputWidth returns the column width of w if it is a terminal, or 0 if it
// is anything else.
func OutputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !terminal.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := terminal.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// WrapList renders items as a bracketed list following header, for example
// "common results for hosts: [db1 db2]". If width exceeds the length of
// padder, the result is word-wrapped to width with padder prepended to each
// continuation line. Lines only break between items, so a host or wiki name
// is never split; whitespace inside an item is replaced with underscores.
func WrapList(header string, items []string, width int, padder string) string {
	cleaned := make([]string, len(items))
	for n, item := range items {
		cleaned[n] = strings.Join(strings.Fields(item), "_")
	}
	s := header + "[" + strings.Join(cleaned, " ") + "]"
	if width <= len(padder) {
		return s
	}
	s = wordwrap.WrapString(s, uint(width-len(padder)))
	return strings.ReplaceAll(s, "\n", "\n"+padder)
}
