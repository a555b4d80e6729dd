package topology

import "slices"

// Scope restricts a Topology to the hosts and wikis requested for one run.
// It satisfies collect.Source as well as the auditor's view of the topology.
type Scope struct {
	Topology *Topology
	Policy   MasterPolicy // nil means FirstListed
	Hosts    []string     // explicitly requested hosts; if empty, every host in Topology
	Wikis    []string
}

// ListHosts returns every host in scope, in order, without duplicates.
func (s *Scope) ListHosts() []string {
	if len(s.Hosts) > 0 {
		return Dedupe(s.Hosts)
	}
	return s.Topology.AllHosts()
}

// ListDatabasesServedBy returns the in-scope wikis served by host, in
// requested order.
func (s *Scope) ListDatabasesServedBy(host string) []string {
	if !slices.Contains(s.ListHosts(), host) {
		return nil
	}
	return s.Topology.WikisForHost(host, s.Wikis)
}

// HostsServing returns the in-scope hosts serving wiki, in section order.
func (s *Scope) HostsServing(wiki string) []string {
	inScope := s.ListHosts()
	var result []string
	for _, host := range s.Topology.HostsForWiki(wiki, inScope) {
		if slices.Contains(inScope, host) && !slices.Contains(result, host) {
			result = append(result, host)
		}
	}
	return result
}

// Masters returns the in-scope master hosts.
func (s *Scope) Masters() []string {
	return s.Topology.Masters(s.policy(), s.ListHosts())
}

func (s *Scope) policy() MasterPolicy {
	if s.Policy == nil {
		return FirstListed{}
	}
	return s.Policy
}
