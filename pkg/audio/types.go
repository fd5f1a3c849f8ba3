// ABOUTME: Audio type definitions and 16-bit sample conversion
// ABOUTME: Defines stream format, peak meter and native byte order helpers
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"golang.org/x/sys/cpu"
)

// BitDepth is the only sample width the player renders
const BitDepth = 16

// Format describes a negotiated PCM stream format
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewFormat returns a 16-bit format
func NewFormat(sampleRate, channels int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitDepth: BitDepth}
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// FramesFor returns the number of frames covering d at this format's rate
func (f Format) FramesFor(d time.Duration) int {
	return int(int64(f.SampleRate) * d.Milliseconds() / 1000)
}

// Peak holds the largest positive sample seen on the first two channels.
// Negative excursions are not tracked, so a packet of only negative
// samples reads as zero.
type Peak struct {
	Left  int16
	Right int16
}

// LeftLevel returns the left peak as a fraction of full scale
func (p Peak) LeftLevel() float64 {
	return float64(p.Left) / math.MaxInt16
}

// RightLevel returns the right peak as a fraction of full scale
func (p Peak) RightLevel() float64 {
	return float64(p.Right) / math.MaxInt16
}

// DecodeS16LE converts little-endian interleaved 16-bit PCM into native
// samples, appending to dst. Trailing bytes that do not complete a frame
// are dropped. The peak of channel 0 and channel 1 is measured on the way.
func DecodeS16LE(dst []int16, src []byte, channels int) ([]int16, Peak) {
	var peak Peak
	if channels < 1 {
		return dst, peak
	}

	frameBytes := 2 * channels
	n := (len(src) / frameBytes) * channels

	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(src[i*2:]))
		switch i % channels {
		case 0:
			if s > peak.Left {
				peak.Left = s
			}
		case 1:
			if s > peak.Right {
				peak.Right = s
			}
		}
		dst = append(dst, s)
	}

	return dst, peak
}

// Silence returns the samples for frames frames of digital silence
func Silence(frames, channels int) []int16 {
	if frames <= 0 || channels <= 0 {
		return nil
	}
	return make([]int16, frames*channels)
}

// NativeEndian returns the host byte order expected by device buffers
func NativeEndian() binary.ByteOrder {
	if cpu.IsBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PutNative writes samples into dst in host byte order and returns the
// number of samples written
func PutNative(dst []byte, samples []int16) int {
	order := NativeEndian()
	n := len(dst) / 2
	if len(samples) < n {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		order.PutUint16(dst[i*2:], uint16(samples[i]))
	}
	return n
}

// PutLE writes samples into dst as little-endian bytes
func PutLE(dst []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
}
