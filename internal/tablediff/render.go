package tablediff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/skeema/tablecheck/internal/layout"
)

// Render returns the report text for f, as found on the supplied replica host
// and database. Some finding types render to multiple lines; the result never
// has a trailing newline.
func (f Finding) Render(replica, database string) string {
	where := fmt.Sprintf("replica %s wiki %s", replica, database)
	switch f.Type {
	case FindingTableMissing:
		return fmt.Sprintf("table %s missing from %s", f.Table, where)
	case FindingTableExtra:
		return fmt.Sprintf("table %s missing on master, present on %s", f.Table, where)
	case FindingColumnMissing:
		return fmt.Sprintf("table %s has column %s missing from %s", f.Table, f.Name, where)
	case FindingColumnExtra:
		return fmt.Sprintf("table %s has column %s extra on %s", f.Table, f.Name, where)
	case FindingColumnMismatch:
		return fmt.Sprintf("table %s has column %s different on %s\nmaster shows: %s\nreplica shows: %s", f.Table, f.Name, where, f.Baseline, f.Target)
	case FindingKeyMissing:
		return fmt.Sprintf("table %s has key %s missing from %s", f.Table, f.Name, where)
	case FindingKeyExtra:
		return fmt.Sprintf("table %s has key %s extra on %s", f.Table, f.Name, where)
	case FindingParamsMissing:
		return fmt.Sprintf("table %s has master parameters %s missing on %s", f.Table, strings.Join(f.Params, " "), where)
	case FindingParamsExtra:
		return fmt.Sprintf("table %s has parameters %s extra on %s", f.Table, strings.Join(f.Params, " "), where)
	case FindingParamValues:
		return fmt.Sprintf("table %s has parameters %s different on %s\nmaster shows: %s", f.Table, valueNames(f.Values), where, valueDetails(f.Values))
	case FindingParamIgnored:
		return fmt.Sprintf("table %s has ignored parameters %s different on %s\nmaster shows: %s", f.Table, valueNames(f.Values), where, valueDetails(f.Values))
	default:
		panic(fmt.Errorf("Unsupported finding type %d", f.Type))
	}
}

func valueNames(vds []ValueDiff) string {
	names := make([]string, len(vds))
	for n, vd := range vds {
		names[n] = vd.Name
	}
	return strings.Join(names, " ")
}

func valueDetails(vds []ValueDiff) string {
	details := make([]string, len(vds))
	for n, vd := range vds {
		details[n] = fmt.Sprintf("%s: master %s, repl %s", vd.Name, paramValue(vd.Baseline), paramValue(vd.Target))
	}
	return strings.Join(details, "; ")
}

func paramValue(p layout.Parameter) string {
	if p.Name == "" {
		return "absent"
	}
	return p.String()
}

// UnifiedDDL returns a unified diff of the raw CREATE TABLE statements of
// baseline and target. Either side may be nil, in which case it is treated as
// an empty statement.
func UnifiedDDL(baseline, target *layout.Table, fromLabel, toLabel string) (string, error) {
	var from, to string
	if baseline != nil {
		from = baseline.CreateStatement + "\n"
	}
	if target != nil {
		to = target.CreateStatement + "\n"
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}
