// ABOUTME: VBAN wire protocol package
// ABOUTME: Decodes and validates VBAN audio datagrams
// Package vban decodes the VBAN UDP audio protocol.
//
// A datagram carries a 28-byte header followed by interleaved little-endian
// samples. Only 16-bit PCM audio is accepted; other protocols, codecs and
// resolutions are rejected with typed errors so a receive loop can drop them
// and carry on.
//
// Example:
//
//	pkt, err := vban.Decode(buf[:n])
//	if err != nil {
//	    return // dropped
//	}
//	rate := pkt.SampleRate.Hz()
package vban
