// Package nsaddr is component D of spec.md: given an authoritative
// nameserver hostname, resolve its A and AAAA addresses via a single
// designated recursive resolver. Grounded on the teacher's addrFromRR
// (addriter.go), which issues a parallel A+AAAA pair of queries for a
// target hostname — but simplified, because spec.md's component D is not
// itself iterative: both queries go straight to the designated recursive
// resolver (8.8.8.8) rather than walking delegations, so the teacher's
// recursive queryIterator/addressIterator state machine has no work to do
// here.
package nsaddr

import (
	"context"
	"time"

	"github.com/miekg/dns"

	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/transport"
	"github.com/domaindiag/dnsdiag/wire"
)

// RecursiveResolver is the designated public recursive resolver used for
// NS hostname address lookups (spec.md §6).
const RecursiveResolver = "8.8.8.8"

// Timeout is the per-call UDP timeout (spec.md §6).
const Timeout = 5 * time.Second

// Resolve returns the deduplicated set of A and AAAA addresses for
// hostname, as seen by RecursiveResolver. It is a thin wrapper around
// ResolveVia so production callers never have to name the resolver
// address.
func Resolve(ctx context.Context, hostname string, sink diaglog.Sink) []string {
	return ResolveVia(ctx, hostname, RecursiveResolver, transport.DefaultPort, sink)
}

// ResolveVia is Resolve against an explicit resolver host/port, letting
// tests substitute an in-process stub for the designated public resolver.
// Both queries are issued concurrently; a failure in one family is logged
// and non-fatal, per spec.md §4.D ("Query failures per family are logged
// but non-fatal; the other family's result is still returned"). Both-family
// failure yields an empty, non-nil-checked slice (nil is a valid empty
// result here).
func ResolveVia(ctx context.Context, hostname, resolverHost string, resolverPort int, sink diaglog.Sink) []string {
	type familyResult struct {
		family string
		addrs  []string
		err    error
	}

	results := make(chan familyResult, 2)

	for _, fam := range []struct {
		name  string
		qtype uint16
	}{{"A", dns.TypeA}, {"AAAA", dns.TypeAAAA}} {
		fam := fam
		go func() {
			q := wire.BuildQuery(hostname, fam.qtype, true)
			resp, rtt, err := transport.Exchange(ctx, q, resolverHost, resolverPort, Timeout)
			if err != nil {
				sink.Record(diaglog.LevelWarn, "ns address lookup failed",
					diaglog.F("hostname", hostname), diaglog.F("family", fam.name), diaglog.F("err", err))
				results <- familyResult{family: fam.name, err: err}
				return
			}

			sink.Record(diaglog.LevelInfo, "ns address lookup",
				diaglog.F("hostname", hostname), diaglog.F("family", fam.name), diaglog.F("rtt", rtt))
			results <- familyResult{family: fam.name, addrs: wire.AddressRecords(resp)}
		}()
	}

	seen := map[string]bool{}
	var addrs []string
	for i := 0; i < 2; i++ {
		r := <-results
		for _, a := range r.addrs {
			if !seen[a] {
				seen[a] = true
				addrs = append(addrs, a)
			}
		}
	}

	return addrs
}
