package topology

import (
	"bufio"
	"io"
	"os"
	"slices"
	"strings"
)

// ReadDBList returns the wiki names listed in a dblist file.
func ReadDBList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDBList(f)
}

// ParseDBList reads one wiki name per line. Blank lines and anything after a
// "#" are ignored, as are duplicates.
func ParseDBList(r io.Reader) ([]string, error) {
	var wikis []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line = strings.TrimSpace(line)
		if line != "" && !slices.Contains(wikis, line) {
			wikis = append(wikis, line)
		}
	}
	return wikis, scanner.Err()
}

// Dedupe returns the non-blank entries of names, trimmed, in their original
// order with duplicates removed.
func Dedupe(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" && !slices.Contains(result, name) {
			result = append(result, name)
		}
	}
	return result
}
