package stickerkit

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/go-stack/stack"
	"github.com/karlmutch/errors"
)

// Kind classifies pipeline failures so callers can decide whether to retry,
// fall back to a static sticker, or report the input as unusable.
type Kind int

const (
	KindDecode Kind = iota + 1
	KindInvalidInput
	KindEncoderUnavailable
	KindEncode
	KindSeekTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode failure"
	case KindInvalidInput:
		return "invalid input"
	case KindEncoderUnavailable:
		return "encoder unavailable"
	case KindEncode:
		return "encode failure"
	case KindSeekTimeout:
		return "seek timeout"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error carries a Kind next to the contextual error built with
// github.com/karlmutch/errors.
type Error struct {
	Kind  Kind
	Cause errors.Error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

// IsKind reports whether err, or anything it wraps, is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == k
}

func kindError(k Kind, cause errors.Error) *Error {
	return &Error{Kind: k, Cause: cause.With("stack", stack.Trace().TrimRuntime())}
}

func newError(k Kind, msg string) *Error {
	return kindError(k, errors.New(msg))
}

func wrapError(k Kind, errGo error) *Error {
	return kindError(k, errors.Wrap(errGo))
}

func checkContext(ctx context.Context) error {
	if errGo := ctx.Err(); errGo != nil {
		return wrapError(KindCanceled, errGo)
	}
	return nil
}
