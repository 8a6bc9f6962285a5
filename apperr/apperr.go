// Package apperr carries the stable error codes the ledger reports to callers.
package apperr

import "errors"

// Kind classifies an Error for transport mapping.
type Kind int

const (
	Validation  Kind = iota + 1 // bad input shape, nothing attempted
	NotFound                    // unknown recipe, session, row or code
	Forbidden                   // resource belongs to someone else
	Conflict                    // business rule rejected the request
	Integrity                   // misconfigured content, not player behaviour
	Unavailable                 // catalog not seeded yet
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case Integrity:
		return "integrity"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a symbolic ledger error. Values are compared by identity, so
// packages declare them once as sentinels and match with errors.Is.
type Error struct {
	Code string
	Kind Kind
}

func New(kind Kind, code string) *Error { return &Error{Code: code, Kind: kind} }

func (e *Error) Error() string { return e.Code }

// From extracts the ledger Error from err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
