// Package dnstest provides an in-process authoritative DNS server for
// tests across this module, adapted from the teacher's server_test.go
// (NewTestServer/testHandler): a zonefile is parsed with
// dns.NewZoneParser and served authoritatively on a loopback address,
// auto-populating the additional section with A/AAAA glue for any NS
// target that has one, exactly as server_test.go does.
package dnstest

import (
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

// Server is a running authoritative test nameserver.
type Server struct {
	Host string
	Port int

	db map[uint16]map[string][]dns.RR
}

// NewServer starts a server on 127.0.0.1:<ephemeral> serving the zone
// described by the RFC 1035 zonefile text in zone. It shuts down
// automatically when the test finishes.
func NewServer(t *testing.T, zone string) *Server {
	return NewServerAt(t, "127.0.0.1:0", zone)
}

// NewServerAt starts a server on listenAddr (e.g. "127.0.0.2:15353")
// serving zone. Multi-hop tests (root delegating to a TLD server
// delegating to an authority) bind each hop to a distinct loopback address
// on the *same* port, since a zonefile A record has no way to carry a
// port number and production traffic is always port 53 regardless of
// which server answers.
func NewServerAt(t *testing.T, listenAddr, zone string) *Server {
	t.Helper()

	srv := &Server{db: map[uint16]map[string][]dns.RR{}}

	zp := dns.NewZoneParser(strings.NewReader(strings.TrimSpace(zone)+"\n"), ".", "dnstest.zone")
	zp.SetIncludeAllowed(false)

	for {
		rr, ok := zp.Next()
		if !ok {
			break
		}
		hdr := rr.Header()
		if srv.db[hdr.Rrtype] == nil {
			srv.db[hdr.Rrtype] = map[string][]dns.RR{}
		}
		srv.db[hdr.Rrtype][hdr.Name] = append(srv.db[hdr.Rrtype][hdr.Name], rr)
	}
	require.NoError(t, zp.Err())

	pc, err := net.ListenPacket("udp", listenAddr)
	require.NoError(t, err)

	dnsSrv := &dns.Server{PacketConn: pc, Handler: dns.HandlerFunc(srv.handle)}

	t.Cleanup(func() { dnsSrv.Shutdown() })
	go dnsSrv.ActivateAndServe()

	host, portStr, err := net.SplitHostPort(pc.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	srv.Host = host
	srv.Port = port

	return srv
}

func (s *Server) handle(w dns.ResponseWriter, r *dns.Msg) {
	if len(r.Question) != 1 {
		m := new(dns.Msg)
		m.SetRcode(r, dns.RcodeFormatError)
		_ = w.WriteMsg(m)
		return
	}

	q := r.Question[0]

	m := new(dns.Msg)
	m.SetRcode(r, dns.RcodeSuccess)
	m.Authoritative = true
	m.Answer = s.db[q.Qtype][q.Name]

	if len(m.Answer) == 0 {
		// NXDOMAIN only when the name has no records of any type; a name
		// that exists under other types gets NOERROR with an empty answer.
		exists := false
		for _, byName := range s.db {
			if len(byName[q.Name]) > 0 {
				exists = true
				break
			}
		}
		if !exists {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeNameError)
			_ = w.WriteMsg(m)
			return
		}
	}

	if q.Qtype == dns.TypeNS {
		for _, rr := range m.Answer {
			ns, ok := rr.(*dns.NS)
			if !ok {
				continue
			}
			m.Extra = append(m.Extra, s.db[dns.TypeA][ns.Ns]...)
			m.Extra = append(m.Extra, s.db[dns.TypeAAAA][ns.Ns]...)
		}
	}

	_ = w.WriteMsg(m)
}
