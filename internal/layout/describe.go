package layout

import (
	"fmt"
	"io"
)

// Describe writes an indented, human-readable rendering of t to w.
func Describe(w io.Writer, t *Table) {
	fmt.Fprintf(w, "  table: %s\n", t.Name)
	fmt.Fprintln(w, "    columns:")
	for _, col := range t.Columns {
		fmt.Fprintf(w, "      %s: %s\n", col.Name, col.Properties)
	}
	if len(t.Keys) > 0 {
		fmt.Fprintln(w, "    keys:")
		for _, key := range t.Keys {
			fmt.Fprintf(w, "      %s\n", key)
		}
	}
	if len(t.Parameters) > 0 {
		fmt.Fprintln(w, "    parameters:")
		for _, p := range ParseParameters(t.ParameterLine()) {
			if p.HasValue {
				fmt.Fprintf(w, "      %s: %s\n", p.Name, p.Value)
			} else {
				fmt.Fprintf(w, "      %s\n", p.Name)
			}
		}
	}
}
