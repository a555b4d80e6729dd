// Package layout converts the output of SHOW CREATE TABLE into a structured,
// comparable form. It only understands the fixed shape that MySQL and MariaDB
// emit for SHOW CREATE TABLE; it is not a general-purpose SQL parser.
package layout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is matched (via errors.Is) by any error returned from
// ParseCreateTable for input that does not look like SHOW CREATE TABLE output.
var ErrMalformed = errors.New("malformed CREATE TABLE")

// MalformedError describes SHOW CREATE TABLE output that could not be parsed.
type MalformedError struct {
	FirstLine string
}

// Error satisfies the builtin error interface.
func (me *MalformedError) Error() string {
	return fmt.Sprintf("%s: unexpected first line %q", ErrMalformed, me.FirstLine)
}

// Is allows errors.Is(err, ErrMalformed) to match.
func (me *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Column is a single column line of a CREATE TABLE: its name, and everything
// after the name as verbatim property text.
type Column struct {
	Name       string
	Properties string
}

// Table is the structured form of one table's SHOW CREATE TABLE output.
type Table struct {
	Name            string
	Columns         []Column // in CREATE TABLE order
	Keys            []string // full key definition lines, in CREATE TABLE order
	Parameters      []string // lines beginning with the closing paren; normally just one
	CreateStatement string   // raw input, used only for display
}

// ParseCreateTable parses the output of SHOW CREATE TABLE. If the first line
// isn't of the form "CREATE TABLE `name` (", a *MalformedError is returned.
// A table with no recognizable column, key, or parameter lines still yields
// a non-nil *Table.
func ParseCreateTable(ddl string) (*Table, error) {
	lines := strings.Split(ddl, "\n")
	for n := range lines {
		lines[n] = strings.TrimRight(strings.TrimLeft(lines[n], " "), ",")
	}
	rest, ok := strings.CutPrefix(lines[0], "CREATE TABLE ")
	if ok {
		rest, ok = strings.CutSuffix(rest, " (")
	}
	if !ok || rest == "" {
		return nil, &MalformedError{FirstLine: lines[0]}
	}

	t := &Table{
		Name:            unquoteIdentifier(rest),
		CreateStatement: ddl,
	}
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "`"):
			name, props := splitColumnLine(line)
			t.Columns = append(t.Columns, Column{Name: name, Properties: props})
		case strings.Contains(line, "KEY "):
			t.Keys = append(t.Keys, line)
		case strings.HasPrefix(line, ")"):
			t.Parameters = append(t.Parameters, line)
		}
	}
	return t, nil
}

// Column returns the column with the supplied name, and a bool indicating
// whether it was found.
func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// HasKey returns true if t contains a key line exactly equal to def.
func (t *Table) HasKey(def string) bool {
	for _, key := range t.Keys {
		if key == def {
			return true
		}
	}
	return false
}

// ParameterLine returns the first parameters line, or an empty string if the
// table had none.
func (t *Table) ParameterLine() string {
	if len(t.Parameters) == 0 {
		return ""
	}
	return t.Parameters[0]
}

// ParameterMap returns the parsed form of ParameterLine.
func (t *Table) ParameterMap() ParameterMap {
	return NewParameterMap(ParseParameters(t.ParameterLine()))
}

// splitColumnLine splits a line beginning with a backtick-quoted column name
// into the unescaped name and the trimmed remainder.
func splitColumnLine(line string) (name, props string) {
	var b strings.Builder
	for n := 1; n < len(line); n++ {
		if line[n] != '`' {
			b.WriteByte(line[n])
		} else if n+1 < len(line) && line[n+1] == '`' {
			b.WriteByte('`')
			n++
		} else {
			return b.String(), strings.TrimSpace(line[n+1:])
		}
	}
	return b.String(), "" // unterminated quote
}

func unquoteIdentifier(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	}
	return s
}
