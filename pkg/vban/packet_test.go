// ABOUTME: Tests for the VBAN datagram decoder
// ABOUTME: Covers the reference fixture, rejection order and stream names
package vban

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// fixture is "VBAN", 48 kHz audio, 1 sample, 2 channels, 16-bit PCM,
// name "test", counter 0, samples 100, -200, 300, -400.
func fixture() []byte {
	buf := []byte{'V', 'B', 'A', 'N', 0x03, 0x00, 0x01, 0x01}
	name := make([]byte, 16)
	copy(name, "test")
	buf = append(buf, name...)
	buf = append(buf, 0, 0, 0, 0)
	for _, s := range []int16{100, -200, 300, -400} {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

func TestDecodeFixture(t *testing.T) {
	p, err := Decode(fixture())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if p.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", p.Channels)
	}
	if p.Samples != 1 {
		t.Errorf("expected 1 sample, got %d", p.Samples)
	}
	if p.SampleRate.Hz() != 48000 {
		t.Errorf("expected 48000 Hz, got %d", p.SampleRate.Hz())
	}
	if p.Protocol != ProtocolAudio || p.Codec != CodecPCM || p.Resolution != Resolution16Int {
		t.Errorf("unexpected format: %v %v %v", p.Protocol, p.Codec, p.Resolution)
	}
	if got := string(p.StreamName.Bytes()); got != "test" {
		t.Errorf("expected stream name 'test', got %q", got)
	}
	if p.FrameCounter != 0 {
		t.Errorf("expected frame counter 0, got %d", p.FrameCounter)
	}

	if len(p.Payload) != 8 {
		t.Fatalf("expected 8 payload bytes, got %d", len(p.Payload))
	}
	expected := []int16{100, -200, 300, -400}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(p.Payload[i*2:]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestDecodeFrameCounter(t *testing.T) {
	buf := fixture()
	binary.LittleEndian.PutUint32(buf[24:28], 0xDEADBEEF)

	p, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.FrameCounter != 0xDEADBEEF {
		t.Errorf("expected counter 0xDEADBEEF, got 0x%X", p.FrameCounter)
	}
}

func TestDecodeCounts(t *testing.T) {
	tests := []struct {
		name         string
		samplesByte  byte
		channelsByte byte
		wantSamples  int
		wantChannels int
	}{
		{"minimum", 0x00, 0x00, 1, 1},
		{"stereo", 0xFF, 0x01, 256, 2},
		{"maximum", 0xFF, 0xFF, 256, 256},
		{"odd", 0x7F, 0x07, 128, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := fixture()
			buf[5] = tt.samplesByte
			buf[6] = tt.channelsByte

			p, err := Decode(buf)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if p.Samples != tt.wantSamples {
				t.Errorf("expected %d samples, got %d", tt.wantSamples, p.Samples)
			}
			if p.Channels != tt.wantChannels {
				t.Errorf("expected %d channels, got %d", tt.wantChannels, p.Channels)
			}
		})
	}
}

func TestDecodeRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"empty", func(b []byte) []byte { return nil }, ErrNotVBAN},
		{"short magic", func(b []byte) []byte { return b[:3] }, ErrNotVBAN},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrNotVBAN},
		{"lowercase magic", func(b []byte) []byte { copy(b, "vban"); return b }, ErrNotVBAN},
		{"truncated header", func(b []byte) []byte { return b[:27] }, ErrTruncated},
		{"oversized", func(b []byte) []byte { return append(b, make([]byte, MaxDatagramSize)...) }, ErrOversized},
		{"serial protocol", func(b []byte) []byte { b[4] = 0x20 | 0x03; return b }, ErrUnsupportedProtocol},
		{"text protocol", func(b []byte) []byte { b[4] = 0x40 | 0x03; return b }, ErrUnsupportedProtocol},
		{"vbca codec", func(b []byte) []byte { b[7] = 0x10 | 0x01; return b }, ErrUnsupportedCodec},
		{"user codec", func(b []byte) []byte { b[7] = 0xF0 | 0x01; return b }, ErrUnsupportedCodec},
		{"8-bit", func(b []byte) []byte { b[7] = 0x00; return b }, ErrUnsupportedResolution},
		{"24-bit", func(b []byte) []byte { b[7] = 0x02; return b }, ErrUnsupportedResolution},
		{"12-bit", func(b []byte) []byte { b[7] = 0x06; return b }, ErrUnsupportedResolution},
		{"10-bit", func(b []byte) []byte { b[7] = 0x07; return b }, ErrUnsupportedResolution},
		{"rate code 21", func(b []byte) []byte { b[4] = 21; return b }, ErrInvalidSampleRate},
		{"rate code 31", func(b []byte) []byte { b[4] = 31; return b }, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.mutate(fixture()))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if p != nil {
				t.Error("expected nil packet on rejection")
			}
		})
	}
}

func TestDecodeRejectionOrder(t *testing.T) {
	// Text protocol, user codec and 8-bit at once: protocol is checked first
	buf := fixture()
	buf[4] = 0x40 | 25
	buf[7] = 0xF0
	if _, err := Decode(buf); !errors.Is(err, ErrUnsupportedProtocol) {
		t.Errorf("expected protocol rejection first, got %v", err)
	}

	// Audio with user codec and 8-bit: codec before resolution
	buf[4] = 0x03
	if _, err := Decode(buf); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected codec rejection second, got %v", err)
	}

	// PCM 8-bit with a bad rate code: resolution before rate
	buf[4] = 25
	buf[7] = 0x00
	if _, err := Decode(buf); !errors.Is(err, ErrUnsupportedResolution) {
		t.Errorf("expected resolution rejection third, got %v", err)
	}
}

func TestDecodeReservedFormatBitIgnored(t *testing.T) {
	buf := fixture()
	buf[7] = 0x08 | 0x01
	if _, err := Decode(buf); err != nil {
		t.Errorf("expected reserved bit to be ignored, got %v", err)
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	p, err := Decode(fixture()[:HeaderSize])
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(p.Payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(p.Payload))
	}
}

func TestDecodePayloadAliasesInput(t *testing.T) {
	buf := fixture()
	p, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	buf[HeaderSize] = 0x7F
	if p.Payload[0] != 0x7F {
		t.Error("expected payload to alias the datagram buffer")
	}
}

func TestStreamNameInvalidUTF8(t *testing.T) {
	buf := fixture()
	copy(buf[8:24], []byte{0xFF, 0xFE, 'a', 0x00, 0x80})

	p, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	want := []byte{0xFF, 0xFE, 'a', 0x00, 0x80}
	if !bytes.Equal(p.StreamName.Bytes(), want) {
		t.Errorf("expected raw name %v, got %v", want, p.StreamName.Bytes())
	}
	if s := p.StreamName.String(); s != `\xff\xfea\x00\x80` {
		t.Errorf("unexpected escaped name %q", s)
	}
}

func TestParseStreamName(t *testing.T) {
	n, err := ParseStreamName("esp32")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wire StreamName
	copy(wire[:], "esp32")
	if !n.Equal(wire) {
		t.Error("expected configured name to equal padded wire name")
	}

	var other StreamName
	copy(other[:], "esp32-b")
	if n.Equal(other) {
		t.Error("expected different names to differ")
	}

	if _, err := ParseStreamName("0123456789abcdef"); err != nil {
		t.Errorf("16 byte name should be accepted: %v", err)
	}
	if _, err := ParseStreamName("0123456789abcdefg"); !errors.Is(err, ErrStreamNameTooLong) {
		t.Errorf("expected ErrStreamNameTooLong, got %v", err)
	}
}

func TestStreamNameIsZero(t *testing.T) {
	var n StreamName
	if !n.IsZero() {
		t.Error("expected zero name")
	}
	n[0] = 'x'
	if n.IsZero() {
		t.Error("expected non-zero name")
	}
}
