// Package grouping partitions hosts or databases into equivalence classes of
// identical canonical layout, so that only one member of each class needs to
// be compared against a baseline.
package grouping

import (
	"cmp"
	"slices"

	"github.com/skeema/tablecheck/internal/layout"
)

// Groups maps a canonical key to the members sharing it. Members are either
// host names (for a single database) or database names (for a single host).
// Each member appears in exactly one group.
type Groups map[layout.Key][]string

// GroupHostsByResult buckets hosts by their canonical key for database. Hosts
// without an entry for database are omitted entirely. Within each group,
// members retain the order in which they were supplied.
func GroupHostsByResult(keys layout.KeyMatrix, hosts []string, database string) Groups {
	groups := make(Groups)
	for _, host := range hosts {
		key, ok := keys.Get(host, database)
		if !ok || slices.Contains(groups[key], host) {
			continue
		}
		groups[key] = append(groups[key], host)
	}
	return groups
}

// GroupDatabasesByResult buckets the databases collected from host by their
// canonical key. Within each group, members are sorted by name.
func GroupDatabasesByResult(keys layout.KeyMatrix, host string) Groups {
	names := make([]string, 0, len(keys[host]))
	for name := range keys[host] {
		names = append(names, name)
	}
	slices.Sort(names)
	groups := make(Groups)
	for _, name := range names {
		key := keys[host][name]
		groups[key] = append(groups[key], name)
	}
	return groups
}

// LookupGroupOf returns the full group containing member, or nil if member is
// not in any group.
func LookupGroupOf(member string, groups Groups) []string {
	for _, members := range groups {
		if slices.Contains(members, member) {
			return members
		}
	}
	return nil
}

// Partition returns every group's members, ordered by each group's first
// member. The result is deterministic for a given Groups value.
func (g Groups) Partition() [][]string {
	result := make([][]string, 0, len(g))
	for _, members := range g {
		result = append(result, members)
	}
	slices.SortFunc(result, func(a, b []string) int {
		return cmp.Compare(a[0], b[0])
	})
	return result
}
