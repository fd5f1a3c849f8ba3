// ABOUTME: Thread-safe circular buffer of 16-bit samples
// ABOUTME: Decouples blocking writers from the device callback
package output

import "sync"

// RingBuffer provides thread-safe circular buffer for audio samples
type RingBuffer struct {
	buffer   []int16
	readPos  int
	writePos int
	size     int
	count    int // Number of samples currently in buffer
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]int16, capacity),
		size:   capacity,
	}
}

// Write adds as many samples as fit and returns how many were stored
func (rb *RingBuffer) Write(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(samples) && rb.count < rb.size {
		n := min(len(samples)-written, rb.size-rb.count, rb.size-rb.writePos)
		copy(rb.buffer[rb.writePos:rb.writePos+n], samples[written:written+n])
		rb.writePos = (rb.writePos + n) % rb.size
		rb.count += n
		written += n
	}
	return written
}

// Read fills samples from the buffer, zero-filling past what is available.
// It returns the number of buffered samples read.
func (rb *RingBuffer) Read(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for read < len(samples) && rb.count > 0 {
		n := min(len(samples)-read, rb.count, rb.size-rb.readPos)
		copy(samples[read:read+n], rb.buffer[rb.readPos:rb.readPos+n])
		rb.readPos = (rb.readPos + n) % rb.size
		rb.count -= n
		read += n
	}

	clear(samples[read:])
	return read
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Reset discards buffered samples
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}
