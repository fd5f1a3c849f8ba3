// ABOUTME: Tests for the sample ring buffer
// ABOUTME: Covers wraparound, overflow, zero fill and reset
package output

import "testing"

func TestRingBufferWriteRead(t *testing.T) {
	rb := NewRingBuffer(8)

	if n := rb.Write([]int16{1, 2, 3}); n != 3 {
		t.Fatalf("expected 3 written, got %d", n)
	}
	if rb.Available() != 3 {
		t.Errorf("expected 3 available, got %d", rb.Available())
	}

	out := make([]int16, 2)
	if n := rb.Read(out); n != 2 {
		t.Fatalf("expected 2 read, got %d", n)
	}
	if out[0] != 1 || out[1] != 2 {
		t.Errorf("expected [1 2], got %v", out)
	}
}

func TestRingBufferWraparound(t *testing.T) {
	rb := NewRingBuffer(4)
	out := make([]int16, 3)

	rb.Write([]int16{1, 2, 3})
	rb.Read(out)
	rb.Write([]int16{4, 5, 6})

	out = make([]int16, 3)
	if n := rb.Read(out); n != 3 {
		t.Fatalf("expected 3 read, got %d", n)
	}
	for i, want := range []int16{4, 5, 6} {
		if out[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, out[i])
		}
	}
}

func TestRingBufferFull(t *testing.T) {
	rb := NewRingBuffer(4)

	if n := rb.Write([]int16{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Errorf("expected 4 written to full buffer, got %d", n)
	}
	if n := rb.Write([]int16{7}); n != 0 {
		t.Errorf("expected 0 written when full, got %d", n)
	}
}

func TestRingBufferZeroFillsOnUnderrun(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]int16{9})

	out := []int16{-1, -1, -1}
	if n := rb.Read(out); n != 1 {
		t.Fatalf("expected 1 read, got %d", n)
	}
	if out[0] != 9 || out[1] != 0 || out[2] != 0 {
		t.Errorf("expected [9 0 0], got %v", out)
	}
}

func TestRingBufferReset(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]int16{1, 2, 3})
	rb.Reset()

	if rb.Available() != 0 {
		t.Errorf("expected empty buffer after reset, got %d available", rb.Available())
	}
	if n := rb.Write([]int16{1, 2, 3, 4}); n != 4 {
		t.Errorf("expected full capacity after reset, wrote %d", n)
	}
}
