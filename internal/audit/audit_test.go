package audit

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/skeema/tablecheck/internal/layout"
	"github.com/skeema/tablecheck/internal/tablediff"
)

// fakeScope is a single-section topology: the first host is the master, and
// every host serves every database.
type fakeScope struct {
	hosts     []string
	databases []string
}

func (fs fakeScope) Masters() []string { return fs.hosts[:1] }

func (fs fakeScope) ListDatabasesServedBy(host string) []string {
	if !slices.Contains(fs.hosts, host) {
		return nil
	}
	return fs.databases
}

func (fs fakeScope) HostsServing(database string) []string {
	if !slices.Contains(fs.databases, database) {
		return nil
	}
	return fs.hosts
}

const (
	pageBase    = "CREATE TABLE `page` (\n  `page_id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n  `page_title` varbinary(255) NOT NULL,\n  PRIMARY KEY (`page_id`)\n) ENGINE=InnoDB AUTO_INCREMENT=5 DEFAULT CHARSET=binary"
	pageAutoInc = "CREATE TABLE `page` (\n  `page_id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n  `page_title` varbinary(255) NOT NULL,\n  PRIMARY KEY (`page_id`)\n) ENGINE=InnoDB AUTO_INCREMENT=900 DEFAULT CHARSET=binary"
	pageEmpty   = "CREATE TABLE `page` (\n  `page_id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n  `page_title` varbinary(255) NOT NULL,\n  `page_extra` int(11) DEFAULT NULL,\n  PRIMARY KEY (`page_id`)\n) ENGINE=InnoDB DEFAULT CHARSET=binary"
	pageExtra   = "CREATE TABLE `page` (\n  `page_id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n  `page_title` varbinary(255) NOT NULL,\n  `page_extra` int(11) DEFAULT NULL,\n  PRIMARY KEY (`page_id`)\n) ENGINE=InnoDB AUTO_INCREMENT=900 DEFAULT CHARSET=binary"
)

func mustDatabase(t *testing.T, ddl string) layout.Database {
	t.Helper()
	table, err := layout.ParseCreateTable(ddl)
	if err != nil {
		t.Fatalf("Unable to parse DDL: %v", err)
	}
	return layout.Database{"page": table}
}

// buildAuditor returns an Auditor over a matrix where each host serves each
// database with the layout given by ddlByHost.
func buildAuditor(t *testing.T, out *bytes.Buffer, hosts, databases []string, ddlByHost map[string]string) *Auditor {
	t.Helper()
	m := make(layout.Matrix)
	for _, host := range hosts {
		ddl, ok := ddlByHost[host]
		if !ok {
			continue // unreachable
		}
		for _, db := range databases {
			m.Set(host, db, mustDatabase(t, ddl))
		}
	}
	return &Auditor{
		Scope:   fakeScope{hosts: hosts, databases: databases},
		Matrix:  m,
		Tables:  []string{"page"},
		Options: tablediff.DefaultOptions(),
		Out:     out,
	}
}

func TestRunPerShardIdenticalReplicas(t *testing.T) {
	var out bytes.Buffer
	hosts := []string{"db1", "db2", "db3"}
	a := buildAuditor(t, &out, hosts, []string{"enwiki"}, map[string]string{
		"db1": pageBase,
		"db2": pageAutoInc,
		"db3": pageAutoInc,
	})
	// Each replica is compared against the master exactly once, and never
	// against each other
	summary := a.RunPerShard()
	if summary.Comparisons != 2 || summary.Drifted != 0 {
		t.Errorf("Expected 2 comparisons with no drift, instead found %s", summary)
	}
	expected := "master: db1\nwiki: enwiki\nDIFFS ****\nshares identical layout with master: [db2 db3]\n"
	if out.String() != expected {
		t.Errorf("Unexpected output:\n%s\nExpected:\n%s", out.String(), expected)
	}

	out.Reset()
	a.Options.IncludeIgnored = true
	summary = a.RunPerShard()
	if summary.Comparisons != 2 || summary.Drifted != 0 {
		t.Errorf("Expected 2 comparisons with no drift, instead found %s", summary)
	}
	for _, host := range []string{"db2", "db3"} {
		needle := "has ignored parameters AUTO_INCREMENT different on replica " + host + " wiki enwiki"
		if count := strings.Count(out.String(), needle); count != 1 {
			t.Errorf("Expected output to contain %q once, instead found %d times:\n%s", needle, count, out.String())
		}
	}
}

func TestRunPerShardDriftedGroup(t *testing.T) {
	var out bytes.Buffer
	hosts := []string{"db1", "db2", "db3", "db4"}
	a := buildAuditor(t, &out, hosts, []string{"enwiki"}, map[string]string{
		"db1": pageBase,
		"db2": pageExtra,
		"db3": pageExtra,
		// db4 unreachable
	})
	summary := a.RunPerShard()
	if summary.Comparisons != 1 || summary.Drifted != 1 {
		t.Errorf("Expected 1 drifted comparison, instead found %s", summary)
	}
	output := out.String()
	if !strings.Contains(output, "common results for hosts: [db2 db3]\n") {
		t.Errorf("Expected common results line, instead found:\n%s", output)
	}
	if !strings.Contains(output, "table page has column page_extra extra on replica db2 wiki enwiki\n") {
		t.Errorf("Expected column finding for db2, instead found:\n%s", output)
	}
	if strings.Contains(output, "replica db3") || strings.Contains(output, "db4") {
		t.Errorf("Expected db3 and db4 to never be diffed, instead found:\n%s", output)
	}
	if strings.Contains(output, "---") {
		t.Errorf("Expected no DDL diff without ShowDDL, instead found:\n%s", output)
	}

	out.Reset()
	a.ShowDDL = true
	a.RunPerShard()
	if !strings.Contains(out.String(), "+  `page_extra` int(11) DEFAULT NULL,") {
		t.Errorf("Expected unified DDL diff with ShowDDL, instead found:\n%s", out.String())
	}
}

func TestRunPerShardVerbose(t *testing.T) {
	var out bytes.Buffer
	a := buildAuditor(t, &out, []string{"db1", "db2"}, []string{"enwiki"}, map[string]string{
		"db1": pageBase,
		"db2": pageBase,
	})
	a.Verbose = true
	a.RunPerShard()
	if !strings.Contains(out.String(), "  table: page\n") {
		t.Errorf("Expected verbose output to describe master structure, instead found:\n%s", out.String())
	}
}

func TestRunGlobal(t *testing.T) {
	var out bytes.Buffer
	hosts := []string{"db1", "db2", "db3"}
	databases := []string{"enwiki", "dewiki", "frwiki"}
	a := buildAuditor(t, &out, hosts, databases, map[string]string{
		"db1": pageBase,
		"db2": pageExtra,
		"db3": pageExtra,
	})
	summary, err := a.RunGlobal("db1", "enwiki")
	if err != nil {
		t.Fatalf("Unexpected error from RunGlobal: %v", err)
	}

	// db1's other wikis are identical to the baseline and get grouped with
	// it; db2+db3 are compared once, covering all three wikis on both hosts
	output := out.String()
	if !strings.HasPrefix(output, "all wiki tables will be checked against db1:enwiki\n") {
		t.Errorf("Unexpected header in output:\n%s", output)
	}
	if summary.Comparisons != 1 || summary.Drifted != 1 {
		t.Errorf("Expected 1 drifted comparison, instead found %s\n%s", summary, output)
	}
	if !strings.Contains(output, "wikis on db2 with identical layout: [dewiki enwiki frwiki]\n") {
		t.Errorf("Expected identical wikis line, instead found:\n%s", output)
	}
	if strings.Contains(output, "replica db1") {
		t.Errorf("Expected baseline cell to never be diffed against itself, instead found:\n%s", output)
	}

	out.Reset()
	if _, err := a.RunGlobal("db9", "enwiki"); !errors.Is(err, ErrBaselineMissing) {
		t.Errorf("Expected ErrBaselineMissing, instead found %v", err)
	}
}

func TestRunGlobalOtherWikisOnBaselineHost(t *testing.T) {
	var out bytes.Buffer
	m := make(layout.Matrix)
	m.Set("db1", "enwiki", mustDatabase(t, pageBase))
	m.Set("db1", "dewiki", mustDatabase(t, pageExtra))
	a := &Auditor{
		Scope:   fakeScope{hosts: []string{"db1"}, databases: []string{"enwiki", "dewiki"}},
		Matrix:  m,
		Tables:  []string{"page"},
		Options: tablediff.DefaultOptions(),
		Out:     &out,
	}
	summary, err := a.RunGlobal("db1", "enwiki")
	if err != nil {
		t.Fatalf("Unexpected error from RunGlobal: %v", err)
	}
	if summary.Comparisons != 1 {
		t.Errorf("Expected only the baseline cell itself to be skipped, instead found %s", summary)
	}
	if !strings.Contains(out.String(), "extra on replica db1 wiki dewiki") {
		t.Errorf("Expected dewiki on baseline host to be diffed, instead found:\n%s", out.String())
	}
}

func TestRunPerShardEmptyReplicaTable(t *testing.T) {
	var out bytes.Buffer
	a := buildAuditor(t, &out, []string{"db1", "db2"}, []string{"enwiki"}, map[string]string{
		"db1": pageBase,
		"db2": pageEmpty,
	})
	a.RunPerShard()
	output := out.String()
	if !strings.Contains(output, "column page_extra extra on replica db2") {
		t.Errorf("Expected column finding for db2, instead found:\n%s", output)
	}
	if strings.Contains(output, "AUTO_INCREMENT") {
		t.Errorf("Expected replica lacking AUTO_INCREMENT to not report it, instead found:\n%s", output)
	}
}

func TestRunAfterMatrixChange(t *testing.T) {
	var out bytes.Buffer
	a := buildAuditor(t, &out, []string{"db1", "db2"}, []string{"enwiki"}, map[string]string{
		"db1": pageBase,
		"db2": pageBase,
	})
	if summary := a.RunPerShard(); summary.Comparisons != 1 || summary.Drifted != 0 {
		t.Errorf("Expected 1 comparison with no drift for identical hosts, instead found %s", summary)
	}
	a.Matrix.Set("db2", "enwiki", mustDatabase(t, pageExtra))
	out.Reset()
	if summary := a.RunPerShard(); summary.Comparisons != 1 || summary.Drifted != 1 {
		t.Errorf("Expected changed matrix to yield 1 drifted comparison, instead found %s\n%s", summary, out.String())
	}
}
