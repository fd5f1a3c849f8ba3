// ABOUTME: VBAN datagram decoder
// ABOUTME: Validates the 28-byte header and exposes the PCM payload without copying
package vban

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// StreamName is the raw 16-byte name field. It is not guaranteed to be text.
type StreamName [StreamNameSize]byte

// ParseStreamName converts a configured name into the wire representation
func ParseStreamName(s string) (StreamName, error) {
	var n StreamName
	if len(s) > StreamNameSize {
		return n, fmt.Errorf("%w: %q is %d bytes", ErrStreamNameTooLong, s, len(s))
	}
	copy(n[:], s)
	return n, nil
}

// Bytes returns the name with trailing NUL padding removed
func (n StreamName) Bytes() []byte {
	return bytes.TrimRight(n[:], "\x00")
}

// Equal compares two names byte for byte, ignoring trailing NULs
func (n StreamName) Equal(other StreamName) bool {
	return bytes.Equal(n.Bytes(), other.Bytes())
}

// IsZero reports whether the name is empty
func (n StreamName) IsZero() bool {
	return len(n.Bytes()) == 0
}

// String renders the name for logs, escaping bytes that are not printable text
func (n StreamName) String() string {
	s := strconv.Quote(string(n.Bytes()))
	return s[1 : len(s)-1]
}

// Header is the decoded fixed prefix of a VBAN datagram
type Header struct {
	SampleRate   SampleRate
	Protocol     Protocol
	Samples      int // samples per channel, 1..256
	Channels     int // 1..256
	Resolution   BitResolution
	Codec        Codec
	StreamName   StreamName
	FrameCounter uint32
}

// Packet is an accepted audio datagram. Payload aliases the input buffer.
type Packet struct {
	Header
	Payload []byte
}

// Decode parses and validates one datagram. Only 16-bit PCM audio packets are
// accepted; everything else is returned as a typed rejection.
func Decode(datagram []byte) (*Packet, error) {
	if len(datagram) < len(Magic) || !bytes.Equal(datagram[:len(Magic)], Magic[:]) {
		return nil, ErrNotVBAN
	}
	if len(datagram) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(datagram))
	}
	if len(datagram) > MaxDatagramSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversized, len(datagram))
	}

	rateByte := datagram[4]
	formatByte := datagram[7]

	protocol := ProtocolFromByte(rateByte)
	if protocol != ProtocolAudio {
		return nil, &FieldError{Field: "protocol", Value: uint8(protocol), Err: ErrUnsupportedProtocol}
	}

	codec := CodecFromByte(formatByte)
	if codec != CodecPCM {
		return nil, &FieldError{Field: "codec", Value: uint8(codec), Err: ErrUnsupportedCodec}
	}

	resolution := BitResolutionFromByte(formatByte)
	if width, ok := resolution.Width(); !ok || width != 2 {
		return nil, &FieldError{Field: "resolution", Value: uint8(resolution), Err: ErrUnsupportedResolution}
	}

	rate, err := SampleRateFromByte(rateByte)
	if err != nil {
		return nil, err
	}

	p := &Packet{
		Header: Header{
			SampleRate:   rate,
			Protocol:     protocol,
			Samples:      int(datagram[5]) + 1,
			Channels:     int(datagram[6]) + 1,
			Resolution:   resolution,
			Codec:        codec,
			FrameCounter: binary.LittleEndian.Uint32(datagram[24:28]),
		},
		Payload: datagram[HeaderSize:],
	}
	copy(p.StreamName[:], datagram[8:24])

	return p, nil
}
