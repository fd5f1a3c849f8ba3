//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio(cfg Config) Output {
	return &PortAudio{}
}

// Open reports that PortAudio support is not compiled in
func (p *PortAudio) Open(channels, sampleRate int) (Sink, error) {
	return nil, &DeviceError{Op: "open", Backend: BackendPortAudio, Err: ErrUnavailable}
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
