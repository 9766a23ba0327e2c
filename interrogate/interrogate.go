// Package interrogate is component E of spec.md: for one (nameserver
// hostname, nameserver IP) pair, query the fixed record-type panel in
// order and collect the results, short-circuiting on NXDOMAIN. Grounded on
// the teacher's query_dns_records_from_ns-shaped loop (present in
// original_source/dns_test.py and generalized in the teacher's doQuery),
// but sequential-by-panel-order rather than the teacher's
// delegation-following doQuery, since component E never walks a
// delegation — every query in the panel goes straight to the one (ns, ip)
// pair under interrogation.
package interrogate

import (
	"context"
	"time"

	"github.com/miekg/dns"

	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/transport"
	"github.com/domaindiag/dnsdiag/wire"
)

// Timeout is the per-query UDP timeout (spec.md §6).
const Timeout = 5 * time.Second

var panelQTypes = map[string]uint16{
	"A":    dns.TypeA,
	"AAAA": dns.TypeAAAA,
	"MX":   dns.TypeMX,
	"TXT":  dns.TypeTXT,
	"SOA":  dns.TypeSOA,
	"CAA":  dns.TypeCAA,
}

// Pair queries every record type in diag.PanelTypes, in order, against
// ip:port for domain, and returns the textual records observed for each
// type that answered. Per spec.md §4.E:
//   - NXDOMAIN on any type terminates the panel for this pair immediately;
//     no later types are queried and the result reflects only the types
//     answered before the NXDOMAIN.
//   - NOERROR with an empty answer, or a timeout/network error, omits that
//     type's key and continues to the next type.
//
// There is no retry at this layer (spec.md §4.F: "no retry — best-effort
// per record type").
func Pair(ctx context.Context, domain, ip string, port int, sink diaglog.Sink) diag.PairResult {
	result := diag.PairResult{}

	for _, rtype := range diag.PanelTypes {
		qtype := panelQTypes[rtype]

		q := wire.BuildQuery(domain, qtype, false)
		resp, rtt, err := transport.Exchange(ctx, q, ip, port, Timeout)

		if err != nil {
			sink.Record(diaglog.LevelWarn, "panel query failed",
				diaglog.F("domain", domain), diaglog.F("ip", ip), diaglog.F("type", rtype), diaglog.F("err", err))
			continue
		}

		if wire.IsNXDomain(resp) {
			sink.Record(diaglog.LevelInfo, "panel short-circuited by NXDOMAIN",
				diaglog.F("domain", domain), diaglog.F("ip", ip), diaglog.F("type", rtype))
			return result
		}

		if !wire.IsSuccess(resp) {
			sink.Record(diaglog.LevelWarn, "panel query non-success rcode",
				diaglog.F("domain", domain), diaglog.F("ip", ip), diaglog.F("type", rtype), diaglog.F("rcode", resp.Rcode))
			continue
		}

		values := wire.TextualRecords(resp)
		if len(values) == 0 {
			continue
		}

		sink.Record(diaglog.LevelInfo, "panel query",
			diaglog.F("domain", domain), diaglog.F("ip", ip), diaglog.F("type", rtype), diaglog.F("rtt", rtt))

		result[rtype] = values
	}

	return result
}
