// ABOUTME: Tests for VBAN header field conversions
// ABOUTME: Covers the rate table, masked enums and resolution widths
package vban

import (
	"errors"
	"testing"
)

func TestSampleRateTable(t *testing.T) {
	expected := []int{
		6000, 12000, 24000, 48000, 96000, 192000, 384000,
		8000, 16000, 32000, 64000, 128000, 256000, 512000,
		11025, 22050, 44100, 88200, 176400, 352800, 705600,
	}

	if NumSampleRates != 21 {
		t.Fatalf("expected 21 sample rates, got %d", NumSampleRates)
	}

	for code, hz := range expected {
		rate, err := SampleRateFromByte(byte(code))
		if err != nil {
			t.Fatalf("code %d: unexpected error: %v", code, err)
		}
		if rate.Hz() != hz {
			t.Errorf("code %d: expected %d Hz, got %d", code, hz, rate.Hz())
		}
	}
}

func TestSampleRateIgnoresProtocolBits(t *testing.T) {
	rate, err := SampleRateFromByte(0x40 | 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.Hz() != 44100 {
		t.Errorf("expected 44100 Hz, got %d", rate.Hz())
	}
}

func TestSampleRateInvalidCodes(t *testing.T) {
	for code := 21; code <= 31; code++ {
		_, err := SampleRateFromByte(byte(code))
		if !errors.Is(err, ErrInvalidSampleRate) {
			t.Errorf("code %d: expected ErrInvalidSampleRate, got %v", code, err)
		}

		var fieldErr *FieldError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("code %d: expected *FieldError, got %T", code, err)
		}
		if fieldErr.Value != uint8(code) {
			t.Errorf("code %d: expected value %d in error, got %d", code, code, fieldErr.Value)
		}
	}
}

func TestSampleRateFromHz(t *testing.T) {
	rate, ok := SampleRateFromHz(48000)
	if !ok || rate != 3 {
		t.Errorf("expected code 3 for 48000 Hz, got %d (ok=%v)", rate, ok)
	}

	if _, ok := SampleRateFromHz(44000); ok {
		t.Error("expected 44000 Hz to be unknown")
	}
}

func TestSampleRateString(t *testing.T) {
	if s := SampleRate(16).String(); s != "44100 Hz" {
		t.Errorf("expected '44100 Hz', got %q", s)
	}
	if hz := SampleRate(30).Hz(); hz != 0 {
		t.Errorf("expected 0 Hz for undefined code, got %d", hz)
	}
}

func TestProtocolFromByte(t *testing.T) {
	tests := []struct {
		input    byte
		expected Protocol
		name     string
	}{
		{0x03, ProtocolAudio, "audio"},
		{0x23, ProtocolSerial, "serial"},
		{0x43, ProtocolText, "text"},
		{0x63, ProtocolService, "service"},
		{0x83, ProtocolUndefined1, "reserved(0x80)"},
		{0xFF, ProtocolUndefined4, "reserved(0xE0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProtocolFromByte(tt.input)
			if p != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, p)
			}
			if p.String() != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, p.String())
			}
		})
	}
}

func TestBitResolutionWidths(t *testing.T) {
	tests := []struct {
		res   BitResolution
		width int
		ok    bool
	}{
		{Resolution8Int, 1, true},
		{Resolution16Int, 2, true},
		{Resolution24Int, 3, true},
		{Resolution32Int, 4, true},
		{Resolution32Float, 4, true},
		{Resolution64Float, 8, true},
		{Resolution12Int, 0, false},
		{Resolution10Int, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			width, ok := tt.res.Width()
			if width != tt.width || ok != tt.ok {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.width, tt.ok, width, ok)
			}
		})
	}
}

func TestFormatByteSplit(t *testing.T) {
	// 0x19: codec VBCA, reserved bit set, 16-bit
	if r := BitResolutionFromByte(0x19); r != Resolution16Int {
		t.Errorf("expected 16-bit resolution, got %v", r)
	}
	if c := CodecFromByte(0x19); c != CodecVBCA {
		t.Errorf("expected VBCA codec, got %v", c)
	}
	if c := CodecFromByte(0xF1); c != CodecUser || c.String() != "user" {
		t.Errorf("expected user codec, got %v", c)
	}
	if c := CodecFromByte(0x51); c.String() != "reserved(0x50)" {
		t.Errorf("expected reserved codec name, got %q", c.String())
	}
}
