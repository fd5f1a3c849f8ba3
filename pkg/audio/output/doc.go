// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Output and Sink interfaces and their backends
// Package output provides audio playback interfaces.
//
// An Output is a backend (malgo, oto or PortAudio) that opens Sinks. A Sink
// is one stream configured for a fixed channel count and sample rate that
// accepts interleaved 16-bit samples. Sinks hold back playback until a start
// threshold of frames has been buffered, and report buffer underruns as
// ErrUnderrun, which WriteWithRecovery handles with one recovery and one
// retried write.
//
// Example:
//
//	out, err := output.New("malgo", output.Config{})
//	sink, err := out.Open(2, 48000)
//	recovered, err := output.WriteWithRecovery(sink, samples)
//	err = sink.Drain()
//	err = sink.Close()
package output
