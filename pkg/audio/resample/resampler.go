// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used by outputs that cannot reopen the device at a new rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It carries the last frame of each chunk into the next so consecutive
// packets join without a discontinuity.
type Resampler struct {
	channels  int
	ratio     float64
	position  float64
	lastFrame []int16 // one sample per channel
	hasLast   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		channels:  channels,
		ratio:     float64(inputRate) / float64(outputRate),
		lastFrame: make([]int16, channels),
	}
}

// Resample converts interleaved input at inputRate and appends the
// interleaved result at outputRate to dst
func (r *Resampler) Resample(dst, input []int16) []int16 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	// frame i of the virtual sequence: the carried frame followed by input
	offset := 0
	if r.hasLast {
		offset = 1
	}
	total := inputFrames + offset
	frame := func(i, ch int) int16 {
		if i < offset {
			return r.lastFrame[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(frame(idx, ch))
			s2 := float64(frame(idx+1, ch))
			dst = append(dst, clamp(s1*(1.0-frac)+s2*frac))
		}
		r.position += r.ratio
	}

	copy(r.lastFrame, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.hasLast = true
	r.position -= float64(total - 1)

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	r.hasLast = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

func clamp(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
