package mint

import (
	"fmt"
)

// Kind classifies a failed mint attempt
type Kind string

const (
	KindPreconditionNotMet   Kind = "PreconditionNotMet"
	KindNetworkUnsupported   Kind = "NetworkUnsupported"
	KindUploadFailed         Kind = "UploadFailed"
	KindChainCallReverted    Kind = "ChainCallReverted"
	KindChainCallUnconfirmed Kind = "ChainCallUnconfirmed"
)

// Error is the failure of one mint attempt.
// Compare with errors.Is against the Err* values below; only Kind is matched.
type Error struct {
	Kind   Kind
	Reason string
	TxHash string
	Err    error
}

var (
	ErrPreconditionNotMet   = &Error{Kind: KindPreconditionNotMet}
	ErrNetworkUnsupported   = &Error{Kind: KindNetworkUnsupported}
	ErrUploadFailed         = &Error{Kind: KindUploadFailed}
	ErrChainCallReverted    = &Error{Kind: KindChainCallReverted}
	ErrChainCallUnconfirmed = &Error{Kind: KindChainCallUnconfirmed}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TxHash != "" {
		msg += " (tx " + e.TxHash + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// UserMessage is the text shown to the user for this failure
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindPreconditionNotMet:
		return "Not ready to mint: " + e.Reason
	case KindNetworkUnsupported:
		return "Wrong network: " + e.Reason
	case KindUploadFailed:
		return "Upload to storage failed, nothing was submitted: " + e.Reason
	case KindChainCallReverted:
		if e.Reason != "" {
			return "Mint transaction reverted: " + e.Reason
		}
		return "Mint transaction reverted"
	case KindChainCallUnconfirmed:
		return fmt.Sprintf("Mint transaction %s was not confirmed. It may still be mined; "+
			"check the explorer or run 'artmint recover' before trying again to avoid minting twice", e.TxHash)
	default:
		return e.Error()
	}
}

// Retryable reports whether a fresh attempt is safe without checking the chain first
func (e *Error) Retryable() bool {
	return e.Kind != KindChainCallUnconfirmed
}

func newError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}
