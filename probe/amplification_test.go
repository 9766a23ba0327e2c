package probe_test

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/probe"
)

// startANYResponder starts a raw UDP responder that answers every query
// with a response containing answerRRs records, returning host/port.
func startANYResponder(t *testing.T, answerRRs []string) (string, int) {
	t.Helper()

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		for _, rr := range answerRRs {
			parsed, err := dns.NewRR(rr)
			require.NoError(t, err)
			m.Answer = append(m.Answer, parsed)
		}
		_ = w.WriteMsg(m)
	})

	pc := newPacketConn(t)
	srv := &dns.Server{PacketConn: pc, Handler: mux}
	t.Cleanup(func() { srv.Shutdown() })
	go srv.ActivateAndServe()

	return hostPort(t, pc)
}

func TestRunAmplificationClassifiesSmallResponseAsBounded(t *testing.T) {
	host, port := startANYResponder(t, []string{"example.com. 300 IN A 203.0.113.9"})

	result, err := probe.RunAmplification(context.Background(), host, port, diaglog.NopSink{})
	require.NoError(t, err)
	assert.Equal(t, probe.AmplificationBounded, result.Class)
}

func TestRunAmplificationClassifiesLargeResponseAsPotential(t *testing.T) {
	var rrs []string
	for i := 0; i < 40; i++ {
		rrs = append(rrs, "example.com. 300 IN TXT \"padding record used only to inflate response size for the amplification test xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx\"")
	}

	host, port := startANYResponder(t, rrs)

	result, err := probe.RunAmplification(context.Background(), host, port, diaglog.NopSink{})
	require.NoError(t, err)
	assert.Equal(t, probe.AmplificationPotential, result.Class)
	assert.Greater(t, result.ResponseSize, probe.AmplificationThreshold)
}

func TestRunAmplificationClassifiesNXDOMAINAsProtected(t *testing.T) {
	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeNameError)
		_ = w.WriteMsg(m)
	})

	pc := newPacketConn(t)
	srv := &dns.Server{PacketConn: pc, Handler: mux}
	t.Cleanup(func() { srv.Shutdown() })
	go srv.ActivateAndServe()

	host, port := hostPort(t, pc)

	result, err := probe.RunAmplification(context.Background(), host, port, diaglog.NopSink{})
	require.NoError(t, err)
	assert.Equal(t, probe.AmplificationProtected, result.Class)
}
