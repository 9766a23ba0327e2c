// Package resolve is component C of spec.md: walk root -> TLD ->
// authoritative to discover the authoritative nameservers for a domain.
// It is grounded on the teacher's queryIteratively/doQuery
// (resolver.go), generalized from "resolve any record type by walking
// arbitrary delegations" down to the narrower two-phase walk spec.md §4.C
// specifies (root servers are a fixed constant list, not discovered; there
// are exactly two phases, not an unbounded delegation loop).
package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"

	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/nsaddr"
	"github.com/domaindiag/dnsdiag/transport"
	"github.com/domaindiag/dnsdiag/wire"
)

// Timeout is the per-call UDP timeout for root and TLD phase queries
// (spec.md §6).
const Timeout = 5 * time.Second

// Options configures a Resolve call. The zero value is production
// defaults; tests override RootServers, Port and the NS-address resolver
// host/port to target in-process stub servers, the same way the teacher's
// lab_test.go overrides Resolver.systemServerAddrs and defaultPort.
type Options struct {
	Sink diaglog.Sink

	RootServers []string // defaults to resolve.RootServers
	Port        int      // defaults to transport.DefaultPort

	NSAddrHost string // defaults to nsaddr.RecursiveResolver
	NSAddrPort int     // defaults to transport.DefaultPort

	Timeout time.Duration // defaults to resolve.Timeout
}

func (o Options) withDefaults() Options {
	if o.RootServers == nil {
		o.RootServers = RootServers
	}
	if o.Port == 0 {
		o.Port = transport.DefaultPort
	}
	if o.NSAddrHost == "" {
		o.NSAddrHost = nsaddr.RecursiveResolver
	}
	if o.NSAddrPort == 0 {
		o.NSAddrPort = transport.DefaultPort
	}
	if o.Timeout == 0 {
		o.Timeout = Timeout
	}
	if o.Sink == nil {
		o.Sink = diaglog.NopSink{}
	}
	return o
}

// Result is the outcome of a successful Resolve: the authoritative NS
// hostnames for the domain, plus any glue addresses the delegation
// response that produced them also carried. Per spec.md §3's invariant
// ("Glue IPs, when present, are preferred over re-resolving the NS
// hostname"), component D must consult Glue before falling back to its own
// A/AAAA lookup.
type Result struct {
	Hostnames []string
	Glue      map[string][]string // keyed by hostname, trailing dot stripped
}

// Resolve discovers the authoritative NS hostnames for domain by walking
// root -> TLD -> authoritative, per spec.md §4.C.
func Resolve(ctx context.Context, domain string, opts Options) (*Result, *diag.Failure) {
	opts = opts.withDefaults()

	tld := lastLabel(domain)

	tldHosts, glue, failure := rootPhase(ctx, tld, opts)
	if failure != nil {
		return nil, failure
	}

	opts.Sink.Record(diaglog.LevelInfo, "root phase succeeded",
		diaglog.F("domain", domain), diaglog.F("tld", tld), diaglog.F("tld_servers", tldHosts),
		diaglog.F("public_suffix", isPublicSuffix(tld)))

	return tldPhase(ctx, domain, tldHosts, glue, opts)
}

// isPublicSuffix reports whether label is itself a registered public
// suffix (https://publicsuffix.org/), the same check the teacher's
// isPublicSuffix (policy.go) uses to decide whether a TLD-level NS
// delegation is cacheable. Here it only annotates the "root phase
// succeeded" log event — spec.md's caching is a Non-goal, so the result
// never changes control flow, only what an operator sees in the event
// log. Resolve passes it the single last label only, so multi-label
// public suffixes such as "co.uk" are never checked.
func isPublicSuffix(label string) bool {
	suffix, _ := publicsuffix.PublicSuffix(label)
	return suffix == label
}

func lastLabel(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	labels := dns.SplitDomainName(domain)
	if len(labels) == 0 {
		return domain
	}
	return labels[len(labels)-1]
}

// rootPhase iterates the root server list in declared order, querying each
// for the TLD's NS set, per spec.md §4.C step 2.
func rootPhase(ctx context.Context, tld string, opts Options) ([]string, map[string][]string, *diag.Failure) {
	q := wire.BuildQuery(tld+".", dns.TypeNS, false)

	for _, root := range opts.RootServers {
		resp, rtt, err := transport.Exchange(ctx, q, root, opts.Port, opts.Timeout)
		if err != nil {
			opts.Sink.Record(diaglog.LevelWarn, "root query failed",
				diaglog.F("root", root), diaglog.F("tld", tld), diaglog.F("err", err))
			continue
		}

		if wire.IsNXDomain(resp) {
			return nil, nil, diag.New(diag.KindNonexistentDomain, tld,
				"TLD %s does not exist (NXDOMAIN from root %s)", tld, root)
		}

		if !wire.IsSuccess(resp) {
			opts.Sink.Record(diaglog.LevelWarn, "root query non-success rcode",
				diaglog.F("root", root), diaglog.F("tld", tld), diaglog.F("rcode", resp.Rcode))
			continue
		}

		hosts := wire.NSHostnames(resp)
		if len(hosts) == 0 {
			continue
		}

		opts.Sink.Record(diaglog.LevelInfo, "root query",
			diaglog.F("root", root), diaglog.F("tld", tld), diaglog.F("rtt", rtt))

		return hosts, wire.AllGlue(resp), nil
	}

	return nil, nil, diag.New(diag.KindNoTLDServers, tld,
		"all %d root servers failed to yield NS servers for TLD %s", len(opts.RootServers), tld)
}

// tldPhase queries each discovered TLD nameserver — using its glue address
// if present, otherwise resolving it via the designated recursive resolver
// (component D) — for the target domain's own NS set, per spec.md §4.C
// step 3.
func tldPhase(ctx context.Context, domain string, tldHosts []string, glue map[string][]string, opts Options) (*Result, *diag.Failure) {
	q := wire.BuildQuery(domain, dns.TypeNS, false)

	for _, host := range tldHosts {
		candidates := glue[host]
		if len(candidates) == 0 {
			candidates = nsaddr.ResolveVia(ctx, host, opts.NSAddrHost, opts.NSAddrPort, opts.Sink)
		}

		for _, ip := range candidates {
			resp, rtt, err := transport.Exchange(ctx, q, ip, opts.Port, opts.Timeout)
			if err != nil {
				opts.Sink.Record(diaglog.LevelWarn, "tld query failed",
					diaglog.F("tld_server", host), diaglog.F("ip", ip), diaglog.F("domain", domain), diaglog.F("err", err))
				continue
			}

			if wire.IsNXDomain(resp) {
				return nil, diag.New(diag.KindNonexistentDomain, domain,
					"domain %s does not exist (NXDOMAIN from %s/%s)", domain, host, ip)
			}

			if !wire.IsSuccess(resp) {
				opts.Sink.Record(diaglog.LevelWarn, "tld query non-success rcode",
					diaglog.F("tld_server", host), diaglog.F("ip", ip), diaglog.F("rcode", resp.Rcode))
				continue
			}

			hosts := wire.NSHostnames(resp)
			if len(hosts) == 0 {
				continue
			}

			opts.Sink.Record(diaglog.LevelInfo, "tld query",
				diaglog.F("tld_server", host), diaglog.F("ip", ip), diaglog.F("domain", domain), diaglog.F("rtt", rtt))

			return &Result{Hostnames: hosts, Glue: wire.AllGlue(resp)}, nil
		}
	}

	return nil, diag.New(diag.KindNoAuthoritativeServers, domain,
		"no TLD server yielded an authoritative NS set for %s", domain)
}
