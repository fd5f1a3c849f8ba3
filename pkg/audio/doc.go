// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Peak and 16-bit sample conversion functions
// Package audio provides the PCM types shared by the session and the output
// backends.
//
// Samples travel through the player as native int16 values, interleaved by
// channel. Conversion from the little-endian wire representation happens once,
// in DecodeS16LE, which also measures the per-packet peak shown on the meter.
//
// Example:
//
//	samples, peak := audio.DecodeS16LE(nil, payload, 2)
//	fmt.Printf("L %.3f R %.3f\n", peak.LeftLevel(), peak.RightLevel())
package audio
