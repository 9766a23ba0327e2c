// Package batch is component F of spec.md: fan out the per-domain
// analysis pipeline (package analyze) over many domains concurrently,
// bounded by a global semaphore, and aggregate the results in input
// order. Grounded on telepresenceio-telepresence's proxy.go, which caps
// concurrent connection handling with golang.org/x/sync/semaphore rather
// than a buffered-channel counting semaphore.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/domaindiag/dnsdiag/analyze"
	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
)

// DefaultConcurrency is the global cap on in-flight domain analyses
// (spec.md §6).
const DefaultConcurrency = 20

// Outcome is the result of analyzing one domain: exactly one of Report or
// Failure is non-nil.
type Outcome struct {
	Domain  string
	Report  *diag.Report
	Failure *diag.Failure
}

// Options configures Run. Concurrency defaults to DefaultConcurrency when
// zero or negative.
type Options struct {
	Sink        diaglog.Sink
	Concurrency int64
	Analyze     analyze.Options // Sink is overwritten with the top-level Sink
}

func (o Options) withDefaults() Options {
	if o.Sink == nil {
		o.Sink = diaglog.NopSink{}
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	o.Analyze.Sink = o.Sink
	return o
}

// Run analyzes every domain in domains under a global concurrency bound,
// per spec.md §4.F/§5. At most Options.Concurrency analyses are in flight
// at once; a failure in one domain's analysis is captured and does not
// abort the others ("exceptions within an individual domain analysis are
// captured and reported as (domain, failure) without aborting peers").
// The returned slice preserves the input domain order.
func Run(ctx context.Context, domains []string, opts Options) []Outcome {
	opts = opts.withDefaults()

	outcomes := make([]Outcome, len(domains))
	sem := semaphore.NewWeighted(opts.Concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, domain := range domains {
		i, domain := i, domain

		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				outcomes[i] = Outcome{Domain: domain, Failure: diag.Wrap(diag.KindNetworkError, domain, err)}
				return nil
			}
			defer sem.Release(1)

			outcomes[i] = analyzeOne(gctx, domain, opts)
			return nil
		})
	}

	// g.Wait's error is always nil: analyzeOne never returns an error to
	// the group, it records failures into outcomes instead, so every
	// peer keeps running regardless of any one domain's outcome.
	_ = g.Wait()

	var succeeded, failed int
	for _, o := range outcomes {
		if o.Failure != nil {
			failed++
		} else {
			succeeded++
		}
	}
	opts.Sink.Record(diaglog.LevelInfo, "batch analysis complete",
		diaglog.F("domains", len(domains)), diaglog.F("succeeded", succeeded), diaglog.F("failed", failed))

	return outcomes
}

func analyzeOne(ctx context.Context, domain string, opts Options) Outcome {
	opts.Sink.Record(diaglog.LevelInfo, "domain analysis started", diaglog.F("domain", domain))

	report, failure := analyze.Domain(ctx, domain, opts.Analyze)
	if failure != nil {
		opts.Sink.Record(diaglog.LevelError, "domain analysis failed",
			diaglog.F("domain", domain), diaglog.F("kind", failure.Kind.String()), diaglog.F("err", failure.Error()))
		return Outcome{Domain: domain, Failure: failure}
	}

	opts.Sink.Record(diaglog.LevelInfo, "domain analysis complete",
		diaglog.F("domain", domain), diaglog.F("nameservers", len(report.NameServers)))
	return Outcome{Domain: domain, Report: report}
}
