package probe

import (
	"context"
	"time"

	"github.com/miekg/dns"

	"github.com/domaindiag/dnsdiag/diaglog"
	"github.com/domaindiag/dnsdiag/transport"
	"github.com/domaindiag/dnsdiag/wire"
)

// AmplificationThreshold is the response-size boundary spec.md §4.G2
// classifies against.
const AmplificationThreshold = 512

// AmplificationTimeout bounds the G2 ANY query.
const AmplificationTimeout = 5 * time.Second

// AmplificationClass is the outcome of a G2 run.
type AmplificationClass int

const (
	// AmplificationProtected means the server refused or errored the ANY
	// query outright.
	AmplificationProtected AmplificationClass = iota
	// AmplificationBounded means the server answered but the response
	// stayed at or under AmplificationThreshold octets.
	AmplificationBounded
	// AmplificationPotential means the server answered with a response
	// larger than AmplificationThreshold octets.
	AmplificationPotential
)

func (c AmplificationClass) String() string {
	switch c {
	case AmplificationProtected:
		return "server refused/errored, protected"
	case AmplificationBounded:
		return "bounded, protected"
	case AmplificationPotential:
		return "potential amplification"
	default:
		return "unknown"
	}
}

// AmplificationResult is the outcome of one G2 run.
type AmplificationResult struct {
	Class        AmplificationClass
	ResponseSize int
	Rcode        int
}

// RunAmplification performs the G2 probe: one ANY query for ProbeDomain
// against server:port, classified by rcode and response size per
// spec.md §4.G2.
func RunAmplification(ctx context.Context, serverIP string, port int, sink diaglog.Sink) (AmplificationResult, error) {
	q := wire.BuildQuery(ProbeDomain, dns.TypeANY, true)

	resp, _, err := transport.Exchange(ctx, q, serverIP, port, AmplificationTimeout)
	if err != nil {
		sink.Record(diaglog.LevelWarn, "amplification probe query failed",
			diaglog.F("target", serverIP), diaglog.F("err", err))
		return AmplificationResult{}, err
	}

	size := resp.Len()
	result := AmplificationResult{ResponseSize: size, Rcode: resp.Rcode}
	switch {
	case !wire.IsSuccess(resp):
		result.Class = AmplificationProtected
	case size <= AmplificationThreshold:
		result.Class = AmplificationBounded
	default:
		result.Class = AmplificationPotential
	}

	sink.Record(diaglog.LevelInfo, "amplification probe result",
		diaglog.F("target", serverIP), diaglog.F("class", result.Class.String()),
		diaglog.F("size", result.ResponseSize), diaglog.F("rcode", result.Rcode))

	return result, nil
}
