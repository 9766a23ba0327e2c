package interrogate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/internal/dnstest"
	"github.com/domaindiag/dnsdiag/interrogate"
)

func TestPairCollectsNonEmptyPanelEntries(t *testing.T) {
	auth := dnstest.NewServer(t, `
example.com. 300 IN A    203.0.113.9
example.com. 300 IN SOA  ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 300
example.com. 300 IN TXT  "v=spf1 -all"
	`)

	sink := diaglog.NewSliceSink()
	result := interrogate.Pair(context.Background(), "example.com", auth.Host, auth.Port, sink)

	require.Contains(t, result, "A")
	require.Contains(t, result, "SOA")
	require.Contains(t, result, "TXT")
	assert.NotContains(t, result, "AAAA")
	assert.NotContains(t, result, "MX")
	assert.NotContains(t, result, "CAA")
}

func TestPairShortCircuitsOnNXDOMAIN(t *testing.T) {
	// The queried name has no records of any type in this zone, so the
	// dnstest handler answers the first panel type (A) with NXDOMAIN —
	// exercising the "no later types are queried" half of spec.md §4.E
	// ("if any record type yields NXDOMAIN, no later record types ...
	// appear in the result").
	auth := dnstest.NewServer(t, `
onlya.example.com. 300 IN A 203.0.113.9
	`)

	sink := diaglog.NewSliceSink()
	result := interrogate.Pair(context.Background(), "nosuchname.example.com", auth.Host, auth.Port, sink)
	assert.Empty(t, result)

	var events []string
	for _, rec := range sink.Records() {
		events = append(events, rec.Event)
	}
	require.Contains(t, events, "panel short-circuited by NXDOMAIN")
}

func TestPairPanelOrderMatchesFixedPanel(t *testing.T) {
	assert.Equal(t, []string{"A", "AAAA", "MX", "TXT", "SOA", "CAA"}, diag.PanelTypes)
}
