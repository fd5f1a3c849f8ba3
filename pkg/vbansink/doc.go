// ABOUTME: Package documentation for the VBAN receiver
// ABOUTME: Single public entry point binding socket, session and output
// Package vbansink receives a VBAN audio stream over UDP and plays it on a
// local output device.
//
// A Receiver owns the socket and the stream session. Each call to
// HandleNext waits up to one second for a datagram; the timeout doubles as
// the liveness tick that releases the device after two seconds of silence.
//
// Example:
//
//	r, err := vbansink.New(vbansink.Config{Port: vbansink.DefaultPort, StreamName: "Stream1"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//	err = r.Run(ctx)
package vbansink
