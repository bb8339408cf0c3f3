package consensus

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a validation failure per the error handling
// design: every rejection is locally classified, never a bare string.
type ErrorCode string

const (
	ErrMalformed        ErrorCode = "MALFORMED"
	ErrMissingInput     ErrorCode = "MISSING_INPUT"
	ErrImmature         ErrorCode = "IMMATURE"
	ErrWrongKey         ErrorCode = "WRONG_KEY"
	ErrBadSig           ErrorCode = "BAD_SIG"
	ErrValue            ErrorCode = "VALUE"
	ErrDoubleSpend      ErrorCode = "DOUBLE_SPEND"
	ErrInvalidPow       ErrorCode = "INVALID_POW"
	ErrInvalidMerkle    ErrorCode = "INVALID_MERKLE"
	ErrInvalidParent    ErrorCode = "INVALID_PARENT"
	ErrInvalidTarget    ErrorCode = "INVALID_TARGET"
	ErrMissingParent    ErrorCode = "MISSING_PARENT"
	ErrTimestampOld     ErrorCode = "TIMESTAMP_OLD"
	ErrTimestampFuture  ErrorCode = "TIMESTAMP_FUTURE"
	ErrInvalidCoinbase  ErrorCode = "INVALID_COINBASE"
	ErrInsufficientFee  ErrorCode = "INSUFFICIENT_FEE"
	ErrMempoolFull      ErrorCode = "MEMPOOL_FULL"
	ErrPeerTimeout      ErrorCode = "PEER_TIMEOUT"
	ErrProtocolMismatch ErrorCode = "PROTOCOL_MISMATCH"
	ErrInternal         ErrorCode = "INTERNAL"
)

// Error is the concrete error type returned throughout this package.
// It is never wrapped in a way that loses Code: callers dispatch on
// Code, not on Error() text.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an *Error,
// returning ("", false) otherwise.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code, true
	}
	return "", false
}
