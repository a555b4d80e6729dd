// Package tablediff computes and renders the differences between a baseline
// table layout and a target layout of the same table on another host.
package tablediff

import (
	"slices"

	"github.com/skeema/tablecheck/internal/layout"
)

// FindingType enumerates the kinds of differences reported between a
// baseline table and a target table.
type FindingType int

// Constants representing finding types, in the order in which they are
// reported for a single table.
const (
	FindingTableMissing   FindingType = iota // table exists on baseline but not target
	FindingTableExtra                        // table exists on target but not baseline
	FindingColumnMissing                     // column on baseline but not target
	FindingColumnExtra                       // column on target but not baseline
	FindingColumnMismatch                    // column on both sides, with different properties
	FindingKeyMissing                        // key on baseline but not target
	FindingKeyExtra                          // key on target but not baseline
	FindingParamsMissing                     // parameters on baseline but not target
	FindingParamsExtra                       // parameters on target but not baseline
	FindingParamValues                       // parameters on both sides, with different values
	FindingParamIgnored                      // value differences only in ignored parameters
)

// DefaultValueIgnore lists parameters whose value differences are not
// reported as drift. This is intentionally distinct from the list used when
// computing canonical keys.
var DefaultValueIgnore = []string{"AUTO_INCREMENT", "DEFAULT"}

// Options control diff behavior.
type Options struct {
	ValueIgnore      []string // parameters whose value differences are not findings
	IncludeIgnored   bool     // emit FindingParamIgnored for value differences in ValueIgnore
	LastMismatchOnly bool     // only report the last mismatching column, in baseline order
}

// DefaultOptions returns the Options used when no overrides are configured.
func DefaultOptions() Options {
	return Options{ValueIgnore: DefaultValueIgnore}
}

// ValueDiff describes one parameter present on both sides with different
// values.
type ValueDiff struct {
	Name     string
	Baseline layout.Parameter
	Target   layout.Parameter
}

// Finding is a single reported difference for one table. Which fields are
// populated depends on Type.
type Finding struct {
	Type     FindingType
	Table    string
	Name     string      // column name or full key definition
	Baseline string      // column properties on baseline, for FindingColumnMismatch
	Target   string      // column properties on target, for FindingColumnMismatch
	Params   []string    // parameter names, for FindingParamsMissing and FindingParamsExtra
	Values   []ValueDiff // for FindingParamValues and FindingParamIgnored
}

// DiffTables compares baseline to target, both layouts of the table name. A
// nil side means the table does not exist there; if either side is nil, at
// most one finding is returned. Identical tables yield no findings.
func DiffTables(name string, baseline, target *layout.Table, opts Options) []Finding {
	if baseline == nil && target == nil {
		return nil
	} else if target == nil {
		return []Finding{{Type: FindingTableMissing, Table: name}}
	} else if baseline == nil {
		return []Finding{{Type: FindingTableExtra, Table: name}}
	}

	var findings []Finding
	findings = append(findings, diffColumns(name, baseline, target, opts)...)
	findings = append(findings, diffKeys(name, baseline, target)...)
	pd := DiffParameters(baseline.ParameterLine(), target.ParameterLine(), opts)
	findings = append(findings, pd.Findings(name, opts.IncludeIgnored)...)
	return findings
}

// DiffDatabases runs DiffTables for each of the named tables, in order. Tables
// with no entry on either side are skipped.
func DiffDatabases(tables []string, baseline, target layout.Database, opts Options) []Finding {
	var findings []Finding
	for _, name := range tables {
		findings = append(findings, DiffTables(name, baseline[name], target[name], opts)...)
	}
	return findings
}

func diffColumns(name string, baseline, target *layout.Table, opts Options) (findings []Finding) {
	var mismatches []Finding
	for _, col := range baseline.Columns {
		if other, ok := target.Column(col.Name); !ok {
			findings = append(findings, Finding{Type: FindingColumnMissing, Table: name, Name: col.Name})
		} else if other.Properties != col.Properties {
			mismatches = append(mismatches, Finding{
				Type:     FindingColumnMismatch,
				Table:    name,
				Name:     col.Name,
				Baseline: col.Properties,
				Target:   other.Properties,
			})
		}
	}
	for _, col := range target.Columns {
		if _, ok := baseline.Column(col.Name); !ok {
			findings = append(findings, Finding{Type: FindingColumnExtra, Table: name, Name: col.Name})
		}
	}
	if opts.LastMismatchOnly && len(mismatches) > 1 {
		mismatches = mismatches[len(mismatches)-1:]
	}
	return append(findings, mismatches...)
}

func diffKeys(name string, baseline, target *layout.Table) (findings []Finding) {
	for _, key := range baseline.Keys {
		if !target.HasKey(key) {
			findings = append(findings, Finding{Type: FindingKeyMissing, Table: name, Name: key})
		}
	}
	for _, key := range target.Keys {
		if !baseline.HasKey(key) {
			findings = append(findings, Finding{Type: FindingKeyExtra, Table: name, Name: key})
		}
	}
	return findings
}

// ParameterDiff is the result of comparing two parameter lines.
type ParameterDiff struct {
	Missing []string    // names on baseline but not target, excluding ignored names
	Extra   []string    // names on target but not baseline, excluding ignored names
	Values  []ValueDiff // differing values, excluding ignored names
	Ignored []ValueDiff // any difference in an ignored name; an absent side is the zero Parameter
}

// DiffParameters compares two raw parameter lines. If the lines are
// textually identical, the result is empty. Names are reported in the order
// in which they appear in the line. Names in opts.ValueIgnore are never
// reported as missing, extra, or differing: an empty table has no
// AUTO_INCREMENT at all, for example.
func DiffParameters(baselineLine, targetLine string, opts Options) (pd ParameterDiff) {
	if baselineLine == targetLine {
		return pd
	}
	baseParams := layout.ParseParameters(baselineLine)
	targetParams := layout.ParseParameters(targetLine)
	baseMap, targetMap := layout.NewParameterMap(baseParams), layout.NewParameterMap(targetParams)

	for _, p := range baseParams {
		other, ok := targetMap[p.Name]
		if ok && other == baseMap[p.Name] {
			continue
		}
		if slices.Contains(opts.ValueIgnore, p.Name) {
			pd.Ignored = appendUniqueValue(pd.Ignored, ValueDiff{Name: p.Name, Baseline: baseMap[p.Name], Target: other})
		} else if !ok {
			pd.Missing = appendUnique(pd.Missing, p.Name)
		} else {
			pd.Values = appendUniqueValue(pd.Values, ValueDiff{Name: p.Name, Baseline: baseMap[p.Name], Target: other})
		}
	}
	for _, p := range targetParams {
		if _, ok := baseMap[p.Name]; ok {
			continue
		}
		if slices.Contains(opts.ValueIgnore, p.Name) {
			pd.Ignored = appendUniqueValue(pd.Ignored, ValueDiff{Name: p.Name, Target: targetMap[p.Name]})
		} else {
			pd.Extra = appendUnique(pd.Extra, p.Name)
		}
	}
	return pd
}

// Empty returns true if pd has nothing to report, including ignored value
// differences.
func (pd ParameterDiff) Empty() bool {
	return len(pd.Missing) == 0 && len(pd.Extra) == 0 && len(pd.Values) == 0 && len(pd.Ignored) == 0
}

// Findings converts pd into findings for the named table.
func (pd ParameterDiff) Findings(table string, includeIgnored bool) (findings []Finding) {
	if len(pd.Missing) > 0 {
		findings = append(findings, Finding{Type: FindingParamsMissing, Table: table, Params: pd.Missing})
	}
	if len(pd.Extra) > 0 {
		findings = append(findings, Finding{Type: FindingParamsExtra, Table: table, Params: pd.Extra})
	}
	if len(pd.Values) > 0 {
		findings = append(findings, Finding{Type: FindingParamValues, Table: table, Values: pd.Values})
	}
	if includeIgnored && len(pd.Ignored) > 0 {
		findings = append(findings, Finding{Type: FindingParamIgnored, Table: table, Values: pd.Ignored})
	}
	return findings
}

func appendUnique(names []string, name string) []string {
	if slices.Contains(names, name) {
		return names
	}
	return append(names, name)
}

func appendUniqueValue(vds []ValueDiff, vd ValueDiff) []ValueDiff {
	for _, existing := range vds {
		if existing.Name == vd.Name {
			return vds
		}
	}
	return append(vds, vd)
}
