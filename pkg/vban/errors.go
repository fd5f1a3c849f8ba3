// ABOUTME: Typed rejections returned by the VBAN decoder
// ABOUTME: Sentinel errors plus FieldError carrying the offending header value
package vban

import (
	"errors"
	"fmt"
)

// Sentinel errors for packet rejection. Callers distinguish them with errors.Is.
var (
	ErrNotVBAN               = errors.New("vban: missing VBAN magic")
	ErrTruncated             = errors.New("vban: datagram shorter than header")
	ErrOversized             = errors.New("vban: datagram exceeds maximum size")
	ErrUnsupportedProtocol   = errors.New("vban: unsupported protocol")
	ErrUnsupportedCodec      = errors.New("vban: unsupported codec")
	ErrUnsupportedResolution = errors.New("vban: unsupported bit resolution")
	ErrInvalidSampleRate     = errors.New("vban: invalid sample rate code")
	ErrStreamNameTooLong     = errors.New("vban: stream name exceeds 16 bytes")
)

// FieldError records which header field caused a rejection and its raw value.
type FieldError struct {
	Field string
	Value uint8
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v (%s=0x%02X)", e.Err, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
