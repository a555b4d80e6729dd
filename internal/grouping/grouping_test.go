package grouping

import (
	"slices"
	"sort"
	"strconv"
	"testing"

	"github.com/skeema/tablecheck/internal/layout"
)

func mustTable(t *testing.T, ddl string) *layout.Table {
	t.Helper()
	table, err := layout.ParseCreateTable(ddl)
	if err != nil {
		t.Fatalf("Unable to parse DDL: %v", err)
	}
	return table
}

func userTable(t *testing.T, autoInc int, extraCol bool) *layout.Table {
	ddl := "CREATE TABLE `user` (\n  `user_id` int(10) unsigned NOT NULL AUTO_INCREMENT,\n"
	if extraCol {
		ddl += "  `user_touched` binary(14) NOT NULL,\n"
	}
	ddl += "  PRIMARY KEY (`user_id`)\n) ENGINE=InnoDB AUTO_INCREMENT=" + strconv.Itoa(autoInc) + " DEFAULT CHARSET=binary"
	return mustTable(t, ddl)
}

// fixtureMatrix returns a matrix where db1, db2 and db4 are equivalent for
// enwiki, db3 differs, and db5 was unreachable.
func fixtureMatrix(t *testing.T) layout.Matrix {
	m := make(layout.Matrix)
	m.Set("db1", "enwiki", layout.Database{"user": userTable(t, 5, false)})
	m.Set("db2", "enwiki", layout.Database{"user": userTable(t, 9, false)})
	m.Set("db3", "enwiki", layout.Database{"user": userTable(t, 5, true)})
	m.Set("db4", "enwiki", layout.Database{"user": userTable(t, 7, false)})
	m.Set("db1", "dewiki", layout.Database{"user": userTable(t, 3, false)})
	m.Set("db1", "frwiki", layout.Database{"user": nil})
	m.Set("db3", "dewiki", layout.Database{"user": userTable(t, 5, false)})
	return m
}

func TestGroupHostsByResult(t *testing.T) {
	keys := fixtureMatrix(t).Keys(layout.DefaultIgnoreParams)
	hosts := []string{"db1", "db2", "db3", "db4", "db5"}
	groups := GroupHostsByResult(keys, hosts, "enwiki")
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, instead found %d: %v", len(groups), groups)
	}
	expected := [][]string{{"db1", "db2", "db4"}, {"db3"}}
	if partition := groups.Partition(); len(partition) != 2 || !slices.Equal(partition[0], expected[0]) || !slices.Equal(partition[1], expected[1]) {
		t.Errorf("Unexpected partition: %v", partition)
	}

	// Partition property: union of groups equals the hosts with an entry, and
	// no host appears twice
	var seen []string
	for _, members := range groups {
		seen = append(seen, members...)
	}
	sort.Strings(seen)
	if !slices.Equal(seen, []string{"db1", "db2", "db3", "db4"}) {
		t.Errorf("Groups do not partition the hosts with entries: %v", seen)
	}

	// Only db1 and db3 serve dewiki; they are equivalent despite AUTO_INCREMENT
	groups = GroupHostsByResult(keys, hosts, "dewiki")
	if len(groups) != 1 {
		t.Errorf("Expected 1 group for dewiki, instead found %d", len(groups))
	}
	if group := LookupGroupOf("db3", groups); !slices.Equal(group, []string{"db1", "db3"}) {
		t.Errorf("Unexpected group for db3: %v", group)
	}

	// Duplicate hosts in input are not double-counted
	groups = GroupHostsByResult(keys, []string{"db1", "db1"}, "enwiki")
	if group := LookupGroupOf("db1", groups); len(group) != 1 {
		t.Errorf("Expected duplicate host to appear once, instead found %v", group)
	}

	if groups := GroupHostsByResult(keys, hosts, "nonexistent"); len(groups) != 0 {
		t.Errorf("Expected no groups for unserved database, instead found %v", groups)
	}
}

func TestGroupHostsNotTransitive(t *testing.T) {
	// db1 and db3 match for dewiki but not for enwiki
	keys := fixtureMatrix(t).Keys(layout.DefaultIgnoreParams)
	hosts := []string{"db1", "db3"}
	if group := LookupGroupOf("db1", GroupHostsByResult(keys, hosts, "dewiki")); len(group) != 2 {
		t.Errorf("Expected db1 and db3 to be grouped for dewiki, instead found %v", group)
	}
	if group := LookupGroupOf("db1", GroupHostsByResult(keys, hosts, "enwiki")); len(group) != 1 {
		t.Errorf("Expected db1 to be alone for enwiki, instead found %v", group)
	}
}

func TestGroupDatabasesByResult(t *testing.T) {
	keys := fixtureMatrix(t).Keys(layout.DefaultIgnoreParams)
	groups := GroupDatabasesByResult(keys, "db1")
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, instead found %d: %v", len(groups), groups)
	}
	if group := LookupGroupOf("enwiki", groups); !slices.Equal(group, []string{"dewiki", "enwiki"}) {
		t.Errorf("Unexpected group for enwiki: %v", group)
	}
	if group := LookupGroupOf("frwiki", groups); !slices.Equal(group, []string{"frwiki"}) {
		t.Errorf("Unexpected group for frwiki: %v", group)
	}
	if group := LookupGroupOf("zhwiki", groups); group != nil {
		t.Errorf("Expected nil group for unknown member, instead found %v", group)
	}
	if groups := GroupDatabasesByResult(keys, "db5"); len(groups) != 0 {
		t.Errorf("Expected no groups for unreachable host, instead found %v", groups)
	}
}
