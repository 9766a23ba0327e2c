package diag

import (
	"encoding/json"
	"sort"
)

// PanelTypes is the fixed, ordered record-type panel of spec.md §3. Order
// matters: component E queries types in exactly this order, and a NXDOMAIN
// on any type short-circuits the rest for that (ns, ip) pair.
var PanelTypes = []string{"A", "AAAA", "MX", "TXT", "SOA", "CAA"}

// PairResult is the per-(ns, ip) result of component E: a mapping from
// record type to its textual records, absent for types with no answer.
type PairResult map[string][]string

// NameServer is one authoritative nameserver discovered for a domain,
// together with every IP address component D found for it and the
// per-address interrogation results that component E produced.
type NameServer struct {
	Hostname string
	Results  map[string]PairResult // keyed by IP
}

// Report is the analysis report of spec.md §3: ns-hostname -> ns-ip ->
// record-type -> textual records. Invariant: a Report never contains an NS
// hostname with zero IP sub-keys (enforced by the caller that assembles it,
// not by this type).
type Report struct {
	Domain      string
	NameServers map[string]*NameServer // keyed by hostname
}

// NewReport returns an empty report for domain.
func NewReport(domain string) *Report {
	return &Report{Domain: domain, NameServers: map[string]*NameServer{}}
}

// AddResult records the interrogation result for one (ns, ip) pair. It is
// safe to call AddResult for the same hostname multiple times (once per
// resolved IP).
func (r *Report) AddResult(hostname, ip string, result PairResult) {
	ns, ok := r.NameServers[hostname]
	if !ok {
		ns = &NameServer{Hostname: hostname, Results: map[string]PairResult{}}
		r.NameServers[hostname] = ns
	}
	ns.Results[ip] = result
}

// Empty reports whether the report carries no nameservers at all — the
// condition that spec.md §6 maps to a non-zero process exit code in
// single-domain mode.
func (r *Report) Empty() bool {
	return r == nil || len(r.NameServers) == 0
}

// Prune removes any nameserver that ended up with zero IP sub-keys,
// enforcing the invariant of spec.md §3 ("a report never contains an NS
// hostname that produced zero successful address resolutions").
func (r *Report) Prune() {
	for host, ns := range r.NameServers {
		if len(ns.Results) == 0 {
			delete(r.NameServers, host)
		}
	}
}

// Hostnames returns the report's nameserver hostnames in sorted order, for
// deterministic iteration (JSON marshaling, tests).
func (r *Report) Hostnames() []string {
	out := make([]string, 0, len(r.NameServers))
	for h := range r.NameServers {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the report as the nested ns -> ip -> type -> values
// mapping described in spec.md §6. encoding/json already produces this
// shape from the natural Go types, so MarshalJSON only needs to flatten
// NameServer down to its Results map.
func (r *Report) MarshalJSON() ([]byte, error) {
	flat := make(map[string]map[string]PairResult, len(r.NameServers))
	for host, ns := range r.NameServers {
		flat[host] = ns.Results
	}
	return json.Marshal(flat)
}
