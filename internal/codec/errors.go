package codec

import (
	"errors"
	"fmt"
)

// ErrorKind clasifica los fallos del codec.
type ErrorKind int

const (
	KindWrongCodecID ErrorKind = iota + 1
	KindRecordCountMismatch
	KindTruncatedInput
	KindUnsupportedWidth
	KindEncodingUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindWrongCodecID:
		return "wrong_codec_id"
	case KindRecordCountMismatch:
		return "record_count_mismatch"
	case KindTruncatedInput:
		return "truncated_input"
	case KindUnsupportedWidth:
		return "unsupported_width"
	case KindEncodingUnsupported:
		return "encoding_unsupported"
	default:
		return "unknown"
	}
}

// CodecError is the only error type returned by Decode and Encode.
// Leading/Trailing are set for KindRecordCountMismatch.
type CodecError struct {
	Kind     ErrorKind
	Msg      string
	Leading  int
	Trailing int
	Cause    error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *CodecError) Unwrap() error { return e.Cause }

// Is compara solo por Kind, para poder usar los sentinels con errors.Is.
func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	return ok && t.Kind == e.Kind
}

var (
	ErrWrongCodecID        = &CodecError{Kind: KindWrongCodecID, Msg: "wrong codec id"}
	ErrRecordCountMismatch = &CodecError{Kind: KindRecordCountMismatch, Msg: "number of records mismatch"}
	ErrTruncatedInput      = &CodecError{Kind: KindTruncatedInput, Msg: "truncated input"}
	ErrUnsupportedWidth    = &CodecError{Kind: KindUnsupportedWidth, Msg: "unsupported io element width"}
	ErrEncodingUnsupported = &CodecError{Kind: KindEncodingUnsupported, Msg: "encoding not implemented for this codec"}
)

func wrongCodecID(got int) *CodecError {
	return &CodecError{Kind: KindWrongCodecID, Msg: fmt.Sprintf("wrong codec id: got %d, want %d", got, GHCodecID)}
}

func countMismatch(leading, trailing int) *CodecError {
	return &CodecError{
		Kind:     KindRecordCountMismatch,
		Msg:      fmt.Sprintf("number of records mismatch: %d!=%d", trailing, leading),
		Leading:  leading,
		Trailing: trailing,
	}
}

func truncated(msg string, cause error) *CodecError {
	return &CodecError{Kind: KindTruncatedInput, Msg: msg, Cause: cause}
}

// KindOf devuelve el Kind de err si es (o envuelve) un *CodecError.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
