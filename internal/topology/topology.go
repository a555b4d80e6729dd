// Package topology describes which database hosts serve which wikis, and
// which host of each section acts as its master.
package topology

import (
	"slices"
	"strings"
)

// DefaultSection is the section serving any wiki not explicitly mapped to
// another section.
const DefaultSection = "DEFAULT"

// Section is a named shard: an ordered list of hosts which together serve a
// set of wikis.
type Section struct {
	Name  string
	Hosts []string
}

// Topology maps wikis to sections, and sections to hosts. A nil or empty
// Topology means no section information is available: every host is then
// treated as a master serving every wiki.
type Topology struct {
	Sections     []Section
	WikiSections map[string]string // wiki name -> section name
}

// Empty returns true if t has no section information.
func (t *Topology) Empty() bool {
	return t == nil || len(t.Sections) == 0
}

// Section returns the section with the supplied name, and a bool indicating
// whether it was found.
func (t *Topology) Section(name string) (Section, bool) {
	if t != nil {
		for _, s := range t.Sections {
			if s.Name == name {
				return s, true
			}
		}
	}
	return Section{}, false
}

// SectionOfWiki returns the name of the section serving wiki.
func (t *Topology) SectionOfWiki(wiki string) string {
	if name, ok := t.WikiSections[wiki]; ok {
		return name
	}
	return DefaultSection
}

// AllHosts returns every host across all sections, in section order, without
// duplicates.
func (t *Topology) AllHosts() []string {
	var hosts []string
	if t == nil {
		return hosts
	}
	for _, s := range t.Sections {
		for _, host := range s.Hosts {
			if !slices.Contains(hosts, host) {
				hosts = append(hosts, host)
			}
		}
	}
	return hosts
}

// HostsForWiki returns the hosts serving wiki, in section order. If t has no
// section information, all of the supplied hosts are returned.
func (t *Topology) HostsForWiki(wiki string, allHosts []string) []string {
	if t.Empty() {
		return allHosts
	}
	s, _ := t.Section(t.SectionOfWiki(wiki))
	return s.Hosts
}

// WikisForHost returns the subset of wikis served by host, retaining the
// order of wikis. A host in several sections serves the union of their
// wikis. If t has no section information, all wikis are returned.
func (t *Topology) WikisForHost(host string, wikis []string) []string {
	if t.Empty() {
		return wikis
	}
	var sections []string
	for _, s := range t.Sections {
		if slices.Contains(s.Hosts, host) {
			sections = append(sections, s.Name)
		}
	}
	var result []string
	for _, wiki := range wikis {
		if slices.Contains(sections, t.SectionOfWiki(wiki)) {
			result = append(result, wiki)
		}
	}
	return result
}

// Masters returns the master host of each section according to policy,
// without duplicates, restricted to hosts in scope. If t has no section
// information, every host in scope is a master.
func (t *Topology) Masters(policy MasterPolicy, scope []string) []string {
	if t.Empty() {
		return scope
	}
	var masters []string
	for _, s := range t.Sections {
		master := policy.MasterOf(s)
		if master != "" && slices.Contains(scope, master) && !slices.Contains(masters, master) {
			masters = append(masters, master)
		}
	}
	return masters
}

// Qualify returns host with domain appended to its name. Any port suffix is
// kept at the end. If domain is blank, or the host name already ends with
// it, host is returned unchanged.
func Qualify(host, domain string) string {
	domain = strings.TrimPrefix(domain, ".")
	if domain == "" {
		return host
	}
	name, port := host, ""
	if pos := strings.LastIndexByte(host, ':'); pos > -1 && !strings.Contains(host, "]") {
		name, port = host[:pos], host[pos:]
	}
	if strings.HasSuffix(name, "."+domain) {
		return host
	}
	return name + "." + domain + port
}
