// Package wire is component A of spec.md: it builds DNS query messages and
// parses DNS responses into the shapes the rest of the pipeline needs (NS
// hostnames, glue addresses, and the generic textual rendering of the
// record panel). It is built on github.com/miekg/dns, generalizing the
// teacher's ad-hoc helpers in dns.go/ns.go (rrValue, trimTrailingDot,
// empty, the NS/glue walk in nsResponseSet) into functions that operate on
// the fixed panel {A, AAAA, MX, TXT, SOA, CAA} rather than an arbitrary
// single record type.
package wire

import (
	"errors"
	"strings"

	"github.com/miekg/dns"
)

// ErrMalformed names a response that cannot be parsed at all. No function
// in this package returns it: parse failures surface from
// transport.Exchange as NetworkError, per spec.md §7.
var ErrMalformed = errors.New("wire: malformed response")

// BuildQuery constructs a standard DNS query for name/qtype, IN class. flags
// = recursion-desired is set for stub queries to a recursive resolver;
// non-recursive (authoritative-style) queries leave it unset — this
// distinction is observable in the response and must be preserved exactly,
// per spec.md §4.A.
func BuildQuery(name string, qtype uint16, recursionDesired bool) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = recursionDesired
	// The teacher leaves Id to miekg/dns's SetQuestion, which sets it to a
	// fresh random 16-bit value (dns.Id); that value is exactly the TXID
	// spec.md §3 requires be "chosen uniformly at random per outbound
	// query", so no additional randomization is needed here.
	return m
}

// Rcode returns the response code of msg, or dns.RcodeServerFailure if msg
// is nil (treated the same as a transport failure by every caller).
func Rcode(msg *dns.Msg) int {
	if msg == nil {
		return dns.RcodeServerFailure
	}
	return msg.Rcode
}

// IsNXDomain reports whether msg is a NXDOMAIN response.
func IsNXDomain(msg *dns.Msg) bool {
	return msg != nil && msg.Rcode == dns.RcodeNameError
}

// IsSuccess reports whether msg is a NOERROR response.
func IsSuccess(msg *dns.Msg) bool {
	return msg != nil && msg.Rcode == dns.RcodeSuccess
}

// Empty reports whether msg carries no records in the answer, authority or
// additional sections — ported from the teacher's empty().
func Empty(msg *dns.Msg) bool {
	return msg == nil || len(msg.Answer)+len(msg.Ns)+len(msg.Extra) == 0
}

func trimTrailingDot(s string) string {
	if s == "." {
		return s
	}
	return strings.TrimSuffix(s, ".")
}

// NSHostnames enumerates NS RR targets from msg, trailing dot stripped,
// preferring the answer section and falling back to the authority section
// per spec.md §4.C step 2 ("extract NS hostnames ... answer section
// preferred; authority section used as fallback").
func NSHostnames(msg *dns.Msg) []string {
	if msg == nil {
		return nil
	}

	if hosts := nsHostnamesFrom(msg.Answer); len(hosts) > 0 {
		return hosts
	}
	return nsHostnamesFrom(msg.Ns)
}

func nsHostnamesFrom(rrs []dns.RR) []string {
	var hosts []string
	for _, rr := range rrs {
		ns, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		hosts = append(hosts, trimTrailingDot(ns.Ns))
	}
	return hosts
}

// GlueAddresses returns the A/AAAA addresses in msg's additional section
// whose owner name matches hostname, case-insensitively and with trailing
// dots normalized — spec.md §4.A's glue lookup.
func GlueAddresses(msg *dns.Msg, hostname string) []string {
	if msg == nil {
		return nil
	}

	want := strings.ToLower(trimTrailingDot(hostname))

	var addrs []string
	for _, rr := range msg.Extra {
		owner := strings.ToLower(trimTrailingDot(rr.Header().Name))
		if owner != want {
			continue
		}

		switch rr := rr.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs
}

// AllGlue collects glue addresses for every NS hostname named in msg's
// answer/authority sections, keyed by hostname (trailing dot stripped).
// Used by the root and TLD phases of component C to avoid a second
// resolution round-trip when glue is already present.
func AllGlue(msg *dns.Msg) map[string][]string {
	glue := map[string][]string{}
	for _, host := range NSHostnames(msg) {
		if addrs := GlueAddresses(msg, host); len(addrs) > 0 {
			glue[host] = addrs
		}
	}
	return glue
}

// AddressRecords enumerates A and AAAA addresses from msg's answer section.
func AddressRecords(msg *dns.Msg) []string {
	if msg == nil {
		return nil
	}

	var addrs []string
	for _, rr := range msg.Answer {
		switch rr := rr.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs
}

// TextualRecords renders every answer RR to its zone-file-like textual
// form, the generic rendering spec.md §4.A calls for MX/TXT/SOA/CAA (and
// reused for A/AAAA too, so callers have one code path for the whole
// panel). The rendering strips the shared RR header the way the teacher's
// rrValue does, leaving just the record-specific fields.
func TextualRecords(msg *dns.Msg) []string {
	if msg == nil {
		return nil
	}

	out := make([]string, 0, len(msg.Answer))
	for _, rr := range msg.Answer {
		out = append(out, rrValue(rr))
	}
	return out
}

func rrValue(rr dns.RR) string {
	return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
}
