// ABOUTME: VBAN header field types and lookup tables
// ABOUTME: Bit-packed rate/protocol and resolution/codec bytes with fallible conversion
package vban

import "fmt"

const (
	// HeaderSize is the fixed prefix: magic, 4 format bytes, stream name, frame counter
	HeaderSize = 28

	// StreamNameSize is the width of the NUL-padded stream name field
	StreamNameSize = 16

	// MaxChannels and MaxSamples follow from the 1-byte (count-1) encoding
	MaxChannels = 256
	MaxSamples  = 256

	// MaxPacketSamples bounds the 16-bit payload of a single datagram
	MaxPacketSamples = 1024

	// MaxDatagramSize is the receive buffer size; larger datagrams are rejected
	MaxDatagramSize = HeaderSize + MaxPacketSamples*2
)

// Magic is the 4-byte preamble of every VBAN datagram
var Magic = [4]byte{'V', 'B', 'A', 'N'}

const (
	sampleRateMask = 0x1F
	protocolMask   = 0xE0
	resolutionMask = 0x07
	codecMask      = 0xF0
)

// SampleRate is an index into the fixed VBAN rate table
type SampleRate uint8

var sampleRates = [...]int{
	6000, 12000, 24000, 48000, 96000, 192000, 384000,
	8000, 16000, 32000, 64000, 128000, 256000, 512000,
	11025, 22050, 44100, 88200, 176400, 352800, 705600,
}

// NumSampleRates is the number of defined rate codes
const NumSampleRates = len(sampleRates)

// SampleRateFromByte extracts the rate code from the low 5 bits of b
func SampleRateFromByte(b byte) (SampleRate, error) {
	code := b & sampleRateMask
	if int(code) >= NumSampleRates {
		return 0, &FieldError{Field: "sample rate", Value: code, Err: ErrInvalidSampleRate}
	}
	return SampleRate(code), nil
}

// SampleRateFromHz finds the rate code for a frequency in Hz
func SampleRateFromHz(hz int) (SampleRate, bool) {
	for i, r := range sampleRates {
		if r == hz {
			return SampleRate(i), true
		}
	}
	return 0, false
}

// Hz returns the frequency for the rate code, or 0 for an undefined code
func (r SampleRate) Hz() int {
	if int(r) >= NumSampleRates {
		return 0
	}
	return sampleRates[r]
}

func (r SampleRate) String() string {
	return fmt.Sprintf("%d Hz", r.Hz())
}

// Protocol is the sub-protocol carried in the high 3 bits of the rate byte
type Protocol uint8

const (
	ProtocolAudio      Protocol = 0x00
	ProtocolSerial     Protocol = 0x20
	ProtocolText       Protocol = 0x40
	ProtocolService    Protocol = 0x60
	ProtocolUndefined1 Protocol = 0x80
	ProtocolUndefined2 Protocol = 0xA0
	ProtocolUndefined3 Protocol = 0xC0
	ProtocolUndefined4 Protocol = 0xE0
)

// ProtocolFromByte masks the protocol bits out of the rate byte. All eight
// values are defined, so the conversion cannot fail.
func ProtocolFromByte(b byte) Protocol {
	return Protocol(b & protocolMask)
}

func (p Protocol) String() string {
	switch p {
	case ProtocolAudio:
		return "audio"
	case ProtocolSerial:
		return "serial"
	case ProtocolText:
		return "text"
	case ProtocolService:
		return "service"
	default:
		return fmt.Sprintf("reserved(0x%02X)", uint8(p))
	}
}

// BitResolution is the sample format in the low 3 bits of the format byte
type BitResolution uint8

const (
	Resolution8Int BitResolution = iota
	Resolution16Int
	Resolution24Int
	Resolution32Int
	Resolution32Float
	Resolution64Float
	Resolution12Int
	Resolution10Int
)

// Byte widths of the first six resolutions. 12-bit and 10-bit have no
// defined packing and report no width.
var resolutionWidths = [...]int{1, 2, 3, 4, 4, 8}

// BitResolutionFromByte masks the resolution bits out of the format byte
func BitResolutionFromByte(b byte) BitResolution {
	return BitResolution(b & resolutionMask)
}

// Width returns the byte width of one sample
func (r BitResolution) Width() (int, bool) {
	if int(r) >= len(resolutionWidths) {
		return 0, false
	}
	return resolutionWidths[r], true
}

func (r BitResolution) String() string {
	switch r {
	case Resolution8Int:
		return "8-bit int"
	case Resolution16Int:
		return "16-bit int"
	case Resolution24Int:
		return "24-bit int"
	case Resolution32Int:
		return "32-bit int"
	case Resolution32Float:
		return "32-bit float"
	case Resolution64Float:
		return "64-bit float"
	case Resolution12Int:
		return "12-bit int"
	case Resolution10Int:
		return "10-bit int"
	default:
		return fmt.Sprintf("resolution(%d)", uint8(r))
	}
}

// Codec is the payload codec in the high 4 bits of the format byte
type Codec uint8

const (
	CodecPCM  Codec = 0x00
	CodecVBCA Codec = 0x10
	CodecVBCV Codec = 0x20
	CodecUser Codec = 0xF0
)

// CodecFromByte masks the codec bits out of the format byte
func CodecFromByte(b byte) Codec {
	return Codec(b & codecMask)
}

func (c Codec) String() string {
	switch c {
	case CodecPCM:
		return "pcm"
	case CodecVBCA:
		return "vbca"
	case CodecVBCV:
		return "vbcv"
	case CodecUser:
		return "user"
	default:
		return fmt.Sprintf("reserved(0x%02X)", uint8(c))
	}
}
