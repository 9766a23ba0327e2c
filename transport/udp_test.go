package transport_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"

	"github.com/domaindiag/dnsdiag/diag"
	"github.com/domaindiag/dnsdiag/transport"
)

// startEchoResponder starts a minimal UDP responder bound to 127.0.0.1 on an
// ephemeral port that answers every query with a single A record, mirroring
// the teacher's server_test.go NewTestServer but without the zonefile
// machinery this package doesn't need.
func startEchoResponder(t *testing.T, flipTXID bool) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 512)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}

			req := new(dns.Msg)
			if err := req.Unpack(buf[:n]); err != nil {
				continue
			}

			resp := new(dns.Msg)
			resp.SetReply(req)
			if flipTXID {
				resp.Id++
			}
			rr, _ := dns.NewRR(req.Question[0].Name + " 60 IN A 203.0.113.9")
			resp.Answer = append(resp.Answer, rr)

			out, err := resp.Pack()
			if err != nil {
				continue
			}
			_, _ = conn.WriteTo(out, addr)
		}
	}()

	return conn.LocalAddr().String()
}

func TestExchangeMatchesTXID(t *testing.T) {
	addr := startEchoResponder(t, false)
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	q := new(dns.Msg)
	q.SetQuestion("example.com.", dns.TypeA)

	resp, _, err := transport.Exchange(context.Background(), q, host, port, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
}

func TestExchangeTimeoutClassifiedAsTimeout(t *testing.T) {
	// 192.0.2.1/24 is TEST-NET-1 (RFC 5737): guaranteed unreachable/black hole.
	q := new(dns.Msg)
	q.SetQuestion("example.com.", dns.TypeA)

	_, _, err := transport.Exchange(context.Background(), q, "192.0.2.1", transport.DefaultPort, 50*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, diag.KindTimeout, diag.KindOf(err))
}
