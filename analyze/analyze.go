// Package analyze composes components C, D and E into the single-domain
// analysis pipeline of spec.md §4.F, including its retry policy. It is
// grounded on the teacher's Resolver.Resolve retry loop (resolver.go),
// which retries a bounded number of times on retryable failures and gives
// up on the first terminal one — the shape kept here, generalized over
// the three distinct retry budgets spec.md §4.F assigns to components C,
// D and E.
//
// The teacher's retry loop reset its attempt counter to 0 immediately
// before the second loop, which would make that loop retry forever on
// persistent failure. That is treated as a bug, not a feature: Domain
// below retries each stage up to MaxAttempts times, full stop.
package analyze

import (
	"context"
	"sort"

	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/interrogate"
	"github.com/domaindiag/dnsdiag/nsaddr"
	"github.com/domaindiag/dnsdiag/resolve"
	"github.com/domaindiag/dnsdiag/transport"
)

// MaxAttempts bounds the retry budget for components C and D (spec.md
// §4.F: "up to 3 attempts").
const MaxAttempts = 3

// Options configures Domain. The zero value uses production defaults for
// every nested stage (resolve.Options, nsaddr's designated resolver,
// interrogate's timeouts).
type Options struct {
	Sink diaglog.Sink

	Resolve resolve.Options // Sink is overwritten with the top-level Sink

	NSAddrHost string // defaults to nsaddr.RecursiveResolver
	NSAddrPort int    // defaults to Resolve.Port (ordinary DNS port in production)
}

func (o Options) withDefaults() Options {
	if o.Sink == nil {
		o.Sink = diaglog.NopSink{}
	}
	o.Resolve.Sink = o.Sink
	if o.Resolve.Port == 0 {
		o.Resolve.Port = transport.DefaultPort
	}
	if o.NSAddrHost == "" {
		o.NSAddrHost = nsaddr.RecursiveResolver
	}
	if o.NSAddrPort == 0 {
		o.NSAddrPort = o.Resolve.Port
	}
	return o
}

// Domain runs the full pipeline for one domain: resolve its authoritative
// nameservers (§4.C, retried up to MaxAttempts), resolve every hostname's
// addresses (§4.D, retried up to MaxAttempts on an empty aggregate), then
// interrogate every (ns, ip) pair concurrently (§4.E, no retry). It never
// returns a non-nil *diag.Failure together with a non-nil report: either
// the whole analysis failed, or it produced a (possibly partial) report.
func Domain(ctx context.Context, domain string, opts Options) (*diag.Report, *diag.Failure) {
	opts = opts.withDefaults()

	res, failure := resolveWithRetry(ctx, domain, opts)
	if failure != nil {
		return nil, failure
	}

	addrsByHost, failure := addressesWithRetry(ctx, res, opts)
	if failure != nil {
		return nil, failure
	}

	report := diag.NewReport(domain)
	interrogatePairs(ctx, domain, res, addrsByHost, report, opts)
	report.Prune()

	return report, nil
}

// resolveWithRetry runs component C up to MaxAttempts times. Per spec.md
// §7, NonexistentDomain is non-retryable and returns immediately; every
// other failure kind is retried until the budget is exhausted.
func resolveWithRetry(ctx context.Context, domain string, opts Options) (*resolve.Result, *diag.Failure) {
	var last *diag.Failure

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		res, failure := resolve.Resolve(ctx, domain, opts.Resolve)
		if failure == nil {
			return res, nil
		}

		last = failure
		if !failure.Kind.Retryable() {
			return nil, failure
		}

		opts.Sink.Record(diaglog.LevelWarn, "nameserver discovery attempt failed",
			diaglog.F("domain", domain), diaglog.F("attempt", attempt), diaglog.F("kind", failure.Kind.String()))
	}

	opts.Sink.Record(diaglog.LevelError, "nameserver discovery exhausted retries",
		diaglog.F("domain", domain), diaglog.F("attempts", MaxAttempts))
	return nil, last
}

// addressesWithRetry runs component D over every hostname res returned, up
// to MaxAttempts times, retrying the whole aggregate when every hostname
// yielded zero addresses. Per-hostname failures inside a single attempt
// are not individually retried (spec.md §4.F).
func addressesWithRetry(ctx context.Context, res *resolve.Result, opts Options) (map[string][]string, *diag.Failure) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		addrsByHost := map[string][]string{}

		for _, host := range res.Hostnames {
			if glue := res.Glue[host]; len(glue) > 0 {
				addrsByHost[host] = glue
				continue
			}
			addrsByHost[host] = nsaddr.ResolveVia(ctx, host, opts.NSAddrHost, opts.NSAddrPort, opts.Sink)
		}

		if !aggregateEmpty(addrsByHost) {
			return addrsByHost, nil
		}

		opts.Sink.Record(diaglog.LevelWarn, "nameserver address resolution attempt yielded nothing",
			diaglog.F("hostnames", res.Hostnames), diaglog.F("attempt", attempt))
	}

	opts.Sink.Record(diaglog.LevelError, "nameserver address resolution exhausted retries",
		diaglog.F("hostnames", res.Hostnames), diaglog.F("attempts", MaxAttempts))
	return nil, diag.New(diag.KindNoServerAddresses, "",
		"no addresses resolved for any of %d nameserver(s) after %d attempts", len(res.Hostnames), MaxAttempts)
}

func aggregateEmpty(addrsByHost map[string][]string) bool {
	for _, addrs := range addrsByHost {
		if len(addrs) > 0 {
			return false
		}
	}
	return true
}

// interrogatePairs fans out component E over every (hostname, ip) pair
// concurrently and writes each result into report, per spec.md §4.F/§5
// ("fan-out of §4.E over all (ns, ip) pairs concurrently"; "completions
// may interleave arbitrarily").
func interrogatePairs(ctx context.Context, domain string, res *resolve.Result, addrsByHost map[string][]string, report *diag.Report, opts Options) {
	type pairOutcome struct {
		hostname, ip string
		result       diag.PairResult
	}

	hostnames := append([]string(nil), res.Hostnames...)
	sort.Strings(hostnames) // deterministic fan-out order; completion order still interleaves

	var pairs int
	for _, host := range hostnames {
		pairs += len(addrsByHost[host])
	}
	if pairs == 0 {
		return
	}

	outcomes := make(chan pairOutcome, pairs)
	for _, host := range hostnames {
		for _, ip := range addrsByHost[host] {
			host, ip := host, ip
			go func() {
				result := interrogate.Pair(ctx, domain, ip, opts.Resolve.Port, opts.Sink)
				outcomes <- pairOutcome{hostname: host, ip: ip, result: result}
			}()
		}
	}

	for i := 0; i < pairs; i++ {
		o := <-outcomes
		report.AddResult(o.hostname, o.ip, o.result)
	}
}
