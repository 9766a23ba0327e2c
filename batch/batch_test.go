package batch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domaindiag/dnsdiag/analyze"
	"github.com/domaindiag/dnsdiag/batch"
	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/internal/dnstest"
	"github.com/domaindiag/dnsdiag/resolve"
)

const testPort = "15553"

func TestRunPreservesInputOrderAndCapturesPerDomainFailure(t *testing.T) {
	auth := dnstest.NewServerAt(t, "127.0.0.20:"+testPort, `
good.example.         300 IN A 203.0.113.9
	`)

	tld := dnstest.NewServerAt(t, "127.0.0.21:"+testPort, `
good.example.         321 IN NS ns1.authority.test.
ns1.authority.test.   321 IN A  `+auth.Host+`
	`)

	root := dnstest.NewServerAt(t, "127.0.0.22:"+testPort, `
example.              321 IN NS gtld-servers.test.
gtld-servers.test.    321 IN A  `+tld.Host+`
	`)

	domains := []string{"good.example", "nonexistent-xyz-9999.invalid", "also-good.example"}

	opts := batch.Options{
		Sink:        diaglog.NewSliceSink(),
		Concurrency: 2,
		Analyze: analyze.Options{
			Resolve: resolve.Options{
				RootServers: []string{root.Host},
				Port:        root.Port,
			},
		},
	}

	outcomes := batch.Run(context.Background(), domains, opts)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "good.example", outcomes[0].Domain)
	assert.Equal(t, "nonexistent-xyz-9999.invalid", outcomes[1].Domain)
	assert.Equal(t, "also-good.example", outcomes[2].Domain)

	require.NotNil(t, outcomes[0].Report)
	assert.Nil(t, outcomes[0].Failure)

	require.NotNil(t, outcomes[1].Failure)
	assert.Equal(t, diag.KindNonexistentDomain, outcomes[1].Failure.Kind)
	assert.Nil(t, outcomes[1].Report)

	// also-good.example shares the same root/TLD servers; the TLD server has
	// no records for it and answers NXDOMAIN, so its analysis fails on its
	// own rather than the batch aborting the whole run.
	require.NotNil(t, outcomes[2].Failure)
}

// TestRunBoundsConcurrencyByWallClock gives each of 12 domains a forced
// resolution latency (a black-hole root with a fixed timeout, hit once per
// each of analyze.MaxAttempts attempts) and a concurrency cap of 3, then
// asserts the whole run takes at least ceil(12/3) timeout windows — proving
// Run is not launching all 12 at once, which would instead finish in
// roughly analyze.MaxAttempts (3) timeout windows.
func TestRunBoundsConcurrencyByWallClock(t *testing.T) {
	const perDomainTimeout = 40 * time.Millisecond

	opts := batch.Options{
		Sink:        diaglog.NopSink{},
		Concurrency: 3,
		Analyze: analyze.Options{
			Resolve: resolve.Options{
				RootServers: []string{"192.0.2.1"}, // TEST-NET-1 black hole, every analysis fails the same way
				Port:        53,
				Timeout:     perDomainTimeout,
			},
		},
	}

	domains := make([]string, 12)
	for i := range domains {
		domains[i] = "example.com"
	}

	start := time.Now()
	outcomes := batch.Run(context.Background(), domains, opts)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 12)
	for _, o := range outcomes {
		assert.NotNil(t, o.Failure)
		assert.Equal(t, diag.KindNoTLDServers, o.Failure.Kind)
	}

	// 12 domains / concurrency 3 = 4 serialized waves minimum.
	assert.GreaterOrEqual(t, elapsed, 4*perDomainTimeout)
}
