// Package transport is component B of spec.md: a single UDP request/response
// round trip with a per-call timeout, generalized from the dns.Client
// exchange embedded in the teacher's doQuery into a standalone function so
// it can be reused by the iterative resolver, the NS address resolver, and
// the record interrogator. RawConn supplies the raw, un-multiplexed socket
// the security probe's spoof burst writes to directly.
package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"github.com/domaindiag/dnsdiag/diag"
)

// DefaultPort is the DNS port used throughout the pipeline (spec.md §6).
const DefaultPort = 53

// Exchange sends query to host:port and waits for a single matching
// response within timeout. There is no retry at this layer (spec.md §4.B)
// — the caller decides whether and how to retry. Production callers pass
// DefaultPort; tests pass the ephemeral port of an in-process stub server,
// the same way the teacher's lab_test.go overrides Resolver.defaultPort.
//
// TXID matching is handled by miekg/dns's Client.ExchangeContext, which
// discards responses whose Id does not match the query, satisfying the
// invariant of spec.md §8 ("TXID(response) == TXID(query)").
func Exchange(ctx context.Context, query *dns.Msg, host string, port int, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	c := &dns.Client{
		Net:     "udp",
		Timeout: timeout,
	}

	resp, rtt, err := c.ExchangeContext(ctx, query, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, rtt, classify(err)
	}

	return resp, rtt, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return diag.Wrap(diag.KindTimeout, "", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return diag.Wrap(diag.KindTimeout, "", err)
	}
	return diag.Wrap(diag.KindNetworkError, "", err)
}

// RawConn opens a single UDP "connection" (in the connectionless sense: a
// socket with a fixed peer) for sending many datagrams without a response,
// such as the Kaminsky spoof burst (component G). Dialing once and writing
// repeatedly avoids the overhead of a fresh socket per datagram while still
// using a fresh ephemeral source port per RawConn call, consistent with
// spec.md §5 ("no connection pooling ... each query uses a fresh ephemeral
// source port") — the burst is not itself a set of independently-addressed
// queries needing separate ports, it is one attacker's packet stream.
func RawConn(addr string, port int) (net.Conn, error) {
	return net.Dial("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
}
