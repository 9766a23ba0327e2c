// Package diag holds the error taxonomy and report data model shared by the
// resolver pipeline (components C-F of spec.md) and the security probe
// (component G). Failures are an explicit tagged variant (Kind + Failure)
// rather than duck-typed errors shuttled around as bare `error` values, per
// the teacher's single ErrNXDomain/ErrCircular sentinels generalized to a
// full enum as spec.md's Design Notes §9 call for.
package diag

import (
	"errors"
	"fmt"
)

// Kind enumerates the terminal and retryable failure classes of spec.md §7.
type Kind int

const (
	// KindInvalidDomain is a syntactic rejection. Terminal.
	KindInvalidDomain Kind = iota
	// KindNonexistentDomain means an NXDOMAIN was observed at the root or
	// TLD phase. Terminal; never retried.
	KindNonexistentDomain
	// KindNoTLDServers means every root server failed to yield a TLD NS
	// set. Retryable.
	KindNoTLDServers
	// KindNoAuthoritativeServers means the TLD phase found no authoritative
	// NS. Retryable.
	KindNoAuthoritativeServers
	// KindNoServerAddresses means component D resolved zero addresses for
	// every authoritative NS hostname. Retryable.
	KindNoServerAddresses
	// KindTimeout is a transport-level timeout. Retryable at the layer
	// above; non-fatal inside component E.
	KindTimeout
	// KindNetworkError is any other transport-level failure, including a
	// malformed response (treated as a network error per spec.md §7).
	KindNetworkError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidDomain:
		return "InvalidDomain"
	case KindNonexistentDomain:
		return "NonexistentDomain"
	case KindNoTLDServers:
		return "NoTLDServers"
	case KindNoAuthoritativeServers:
		return "NoAuthoritativeServers"
	case KindNoServerAddresses:
		return "NoServerAddresses"
	case KindTimeout:
		return "Timeout"
	case KindNetworkError:
		return "NetworkError"
	default:
		return "Unknown"
	}
}

// Retryable reports whether the §4.F retry policy may attempt the failing
// operation again. NonexistentDomain and InvalidDomain are the only terminal
// kinds; every other kind is retryable at the layer that produced it.
func (k Kind) Retryable() bool {
	switch k {
	case KindInvalidDomain, KindNonexistentDomain:
		return false
	default:
		return true
	}
}

// Failure is the concrete error value carried through the pipeline. It
// wraps an optional underlying error (a transport error, a parse error)
// with the Kind that the caller's retry policy switches on.
type Failure struct {
	Kind    Kind
	Domain  string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Message == "" && f.Err == nil {
		return f.Kind.String()
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// New builds a Failure of the given kind with a formatted message.
func New(kind Kind, domain string, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Domain: domain, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Failure of the given kind around an existing error.
func Wrap(kind Kind, domain string, err error) *Failure {
	return &Failure{Kind: kind, Domain: domain, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Failure, and
// KindNetworkError otherwise — any transport error that wasn't explicitly
// classified is treated as a network error per spec.md §7
// ("MalformedResponse ... treat as NetworkError").
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindNetworkError
}
