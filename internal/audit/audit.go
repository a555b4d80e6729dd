// Package audit walks a collected layout matrix, choosing which hosts to
// compare against which baseline, and writes the drift report.
package audit

import (
	"errors"
	"fmt"
	"io"
	"slices"

	log "github.com/sirupsen/logrus"
	"github.com/skeema/tablecheck/internal/grouping"
	"github.com/skeema/tablecheck/internal/layout"
	"github.com/skeema/tablecheck/internal/tablediff"
	"github.com/skeema/tablecheck/internal/util"
)

// ErrBaselineMissing is returned by RunGlobal if no layout was collected for
// the requested baseline.
var ErrBaselineMissing = errors.New("no tables collected for baseline")

// Scope is the auditor's view of the replication topology.
type Scope interface {
	Masters() []string
	ListDatabasesServedBy(host string) []string
	HostsServing(database string) []string
}

// Summary tallies the comparisons performed by a run.
type Summary struct {
	Comparisons int // (host, database) cells diffed against a baseline
	Drifted     int // comparisons which yielded at least one non-ignored finding
}

func (s Summary) String() string {
	return fmt.Sprintf("%d comparisons, %d with drift", s.Comparisons, s.Drifted)
}

// Auditor compares collected layouts against baselines. Matrix must be fully
// populated before each Run method is called.
type Auditor struct {
	Scope       Scope
	Matrix      layout.Matrix
	Tables      []string
	GroupIgnore []string // parameters excluded from canonical keys; nil means layout.DefaultIgnoreParams
	Options     tablediff.Options
	Verbose     bool // describe every baseline structure before its diffs
	ShowDDL     bool // follow drift with a unified diff of the raw DDL
	WrapWidth   int  // wrap long member lists at this width; 0 disables
	Out         io.Writer

	summary Summary
}

// keyMatrix derives canonical keys from the current contents of Matrix. It is
// called once per run, so a Matrix changed between runs is never audited with
// stale keys.
func (a *Auditor) keyMatrix() layout.KeyMatrix {
	ignore := a.GroupIgnore
	if ignore == nil {
		ignore = layout.DefaultIgnoreParams
	}
	return a.Matrix.Keys(ignore)
}

// RunPerShard compares every replica of each shard against that shard's
// master, one database at a time. Hosts sharing a layout for a database are
// diffed only once, via their first member.
func (a *Auditor) RunPerShard() Summary {
	a.summary = Summary{}
	keys := a.keyMatrix()
	for _, master := range a.Scope.Masters() {
		if !a.Matrix.HasHost(master) {
			log.Debugf("Skipping master %s: no tables collected", master)
			continue
		}
		for _, database := range a.Scope.ListDatabasesServedBy(master) {
			baseline, ok := a.Matrix.Get(master, database)
			if !ok {
				log.Warnf("No tables for wiki %s on master %s", database, master)
				continue
			}
			fmt.Fprintln(a.Out, "master:", master)
			fmt.Fprintln(a.Out, "wiki:", database)
			if a.Verbose {
				a.describe(baseline)
			}
			hosts := a.Scope.HostsServing(database)
			groups := grouping.GroupHostsByResult(keys, hosts, database)
			log.Debugf("Hosts grouped by results for wiki %s: %v", database, groups.Partition())
			fmt.Fprintln(a.Out, "DIFFS ****")
			done := make(map[string]bool)
			for _, host := range hosts {
				if done[host] || host == master {
					continue
				}
				target, ok := a.Matrix.Get(host, database)
				if !ok {
					log.Debugf("Skipping %s wiki %s: no tables collected", host, database)
					continue
				}
				members := grouping.LookupGroupOf(host, groups)
				for _, member := range members {
					done[member] = true
				}
				if slices.Contains(members, master) {
					a.sharesLayout(master, baseline, database, members)
					continue
				}
				if len(members) > 1 {
					a.printList("common results for hosts: ", members)
				}
				a.compare(master+":"+database, baseline, host, database, target)
			}
		}
	}
	return a.summary
}

// sharesLayout reports the members of the master's own group, and diffs each
// of them against the master exactly once. Their canonical keys match, so
// only parameters outside the grouping ignore list can produce findings.
func (a *Auditor) sharesLayout(master string, baseline layout.Database, database string, members []string) {
	others := slices.DeleteFunc(slices.Clone(members), func(m string) bool { return m == master })
	if len(others) == 0 {
		return
	}
	a.printList("shares identical layout with master: ", others)
	for _, host := range others {
		target, _ := a.Matrix.Get(host, database)
		a.compare(master+":"+database, baseline, host, database, target)
	}
}

// RunGlobal compares every in-scope database on every host against the
// layout of database on host. Databases on a host sharing a layout with one
// already compared are skipped.
func (a *Auditor) RunGlobal(baselineHost, baselineDatabase string) (Summary, error) {
	a.summary = Summary{}
	keys := a.keyMatrix()
	fmt.Fprintf(a.Out, "all wiki tables will be checked against %s:%s\n", baselineHost, baselineDatabase)
	baseline, ok := a.Matrix.Get(baselineHost, baselineDatabase)
	if !ok {
		return a.summary, fmt.Errorf("%w %s:%s", ErrBaselineMissing, baselineHost, baselineDatabase)
	}
	if a.Verbose {
		a.describe(baseline)
	}
	label := baselineHost + ":" + baselineDatabase

	// host -> databases already covered on that host
	covered := make(map[string]map[string]bool)
	markCovered := func(host string, databases []string) {
		if covered[host] == nil {
			covered[host] = make(map[string]bool)
		}
		for _, db := range databases {
			covered[host][db] = true
		}
	}

	visited := make(map[string]bool)
	for _, master := range a.Scope.Masters() {
		if !a.Matrix.HasHost(master) {
			log.Debugf("Skipping master %s: no tables collected", master)
			continue
		}
		for _, database := range a.Scope.ListDatabasesServedBy(master) {
			if visited[database] {
				continue
			}
			visited[database] = true
			hosts := a.Scope.HostsServing(database)
			groups := grouping.GroupHostsByResult(keys, hosts, database)
			log.Debugf("Hosts grouped by results for wiki %s: %v", database, groups.Partition())
			fmt.Fprintln(a.Out, "wiki:", database)
			fmt.Fprintln(a.Out, "DIFFS ****")
			done := make(map[string]bool)
			for _, host := range hosts {
				if done[host] || covered[host][database] {
					continue
				}
				target, ok := a.Matrix.Get(host, database)
				if !ok {
					log.Debugf("Skipping %s wiki %s: no tables collected", host, database)
					continue
				}
				members := grouping.LookupGroupOf(host, groups)
				for _, member := range members {
					done[member] = true
					// Each member skips its own databases equivalent to this one
					markCovered(member, grouping.LookupGroupOf(database, grouping.GroupDatabasesByResult(keys, member)))
				}
				if database == baselineDatabase && slices.Contains(members, baselineHost) {
					others := slices.DeleteFunc(slices.Clone(members), func(m string) bool { return m == baselineHost })
					if len(others) > 0 {
						a.printList("shares identical layout with master: ", others)
					}
					continue
				}
				if len(members) > 1 {
					a.printList("common results for hosts: ", members)
				}
				if sameWikis := grouping.LookupGroupOf(database, grouping.GroupDatabasesByResult(keys, host)); len(sameWikis) > 1 {
					a.printList(fmt.Sprintf("wikis on %s with identical layout: ", host), sameWikis)
				}
				a.compare(label, baseline, host, database, target)
			}
		}
	}
	return a.summary, nil
}

// compare diffs target against baseline and writes every finding.
func (a *Auditor) compare(baselineLabel string, baseline layout.Database, host, database string, target layout.Database) {
	a.summary.Comparisons++
	findings := tablediff.DiffDatabases(a.Tables, baseline, target, a.Options)
	var drifted bool
	for _, f := range findings {
		fmt.Fprintln(a.Out, f.Render(host, database))
		if f.Type != tablediff.FindingParamIgnored {
			drifted = true
		}
	}
	if !drifted {
		return
	}
	a.summary.Drifted++
	if a.ShowDDL {
		a.showDDL(baselineLabel, baseline, host+":"+database, target, findings)
	}
}

func (a *Auditor) showDDL(baselineLabel string, baseline layout.Database, targetLabel string, target layout.Database, findings []tablediff.Finding) {
	var shown []string
	for _, f := range findings {
		if f.Type == tablediff.FindingParamIgnored || slices.Contains(shown, f.Table) {
			continue
		}
		shown = append(shown, f.Table)
		diff, err := tablediff.UnifiedDDL(baseline[f.Table], target[f.Table], baselineLabel+" "+f.Table, targetLabel+" "+f.Table)
		if err != nil {
			log.Warnf("Unable to generate DDL diff for table %s: %s", f.Table, err)
			continue
		}
		fmt.Fprint(a.Out, diff)
	}
}

func (a *Auditor) describe(db layout.Database) {
	for _, name := range a.Tables {
		if t := db[name]; t != nil {
			layout.Describe(a.Out, t)
		}
	}
}

func (a *Auditor) printList(header string, members []string) {
	fmt.Fprintln(a.Out, util.WrapList(header, members, a.WrapWidth, "    "))
}
