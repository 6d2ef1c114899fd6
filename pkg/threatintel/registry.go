package threatintel

import (
	"sort"

	"github.com/soteria-soc/soteria/config"
)

//Registry holds the set of domains known to be malicious. Sessions to
//a registered domain are kept out of model training so the forest
//never learns beaconing as normal traffic.
type Registry struct {
	domains map[string]struct{}
}

//NewRegistry seeds a registry from the statically configured known
//bad domains
func NewRegistry(conf *config.Config) *Registry {
	registry := &Registry{
		domains: make(map[string]struct{}, len(conf.S.ThreatIntel.KnownBadDomains)),
	}
	for _, domain := range conf.S.ThreatIntel.KnownBadDomains {
		registry.Add(domain)
	}
	return registry
}

//Add registers a domain as known bad
func (r *Registry) Add(domain string) {
	r.domains[domain] = struct{}{}
}

//Contains checks whether a domain is registered
func (r *Registry) Contains(domain string) bool {
	_, ok := r.domains[domain]
	return ok
}

//Len returns the number of registered domains
func (r *Registry) Len() int {
	return len(r.domains)
}

//Domains returns the registered domains in a deterministic order
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.domains))
	for domain := range r.domains {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}
