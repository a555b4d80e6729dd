package topology

import (
	"fmt"
	"strings"
)

// MasterPolicy decides which host of a section is its master.
type MasterPolicy interface {
	MasterOf(s Section) string
}

// FirstListed is the conventional MasterPolicy: the first host listed in a
// section's load configuration is its master.
type FirstListed struct{}

// MasterOf returns the first host of s, or "" if s has no hosts.
func (FirstListed) MasterOf(s Section) string {
	if len(s.Hosts) == 0 {
		return ""
	}
	return s.Hosts[0]
}

// ExplicitMasters names the master of each section directly. Sections not
// present in the map fall back to Fallback, if non-nil.
type ExplicitMasters struct {
	Masters  map[string]string // section name -> host
	Fallback MasterPolicy
}

// MasterOf returns the configured master of s.
func (em ExplicitMasters) MasterOf(s Section) string {
	if host, ok := em.Masters[s.Name]; ok {
		return host
	}
	if em.Fallback != nil {
		return em.Fallback.MasterOf(s)
	}
	return ""
}

// ParseExplicitMasters parses a list of "section=host" pairs.
func ParseExplicitMasters(pairs []string, fallback MasterPolicy) (ExplicitMasters, error) {
	em := ExplicitMasters{
		Masters:  make(map[string]string, len(pairs)),
		Fallback: fallback,
	}
	for _, pair := range pairs {
		section, host, ok := strings.Cut(pair, "=")
		section, host = strings.TrimSpace(section), strings.TrimSpace(host)
		if !ok || section == "" || host == "" {
			return em, fmt.Errorf("Invalid section master %q: expected format section=host", pair)
		}
		em.Masters[section] = host
	}
	return em, nil
}
