// ABOUTME: Test helpers for building VBAN datagrams
// ABOUTME: Shared by decoder, session and receiver tests
package vbantest

import (
	"encoding/binary"
	"fmt"

	"github.com/vbansink/vbansink-go/pkg/vban"
)

// Datagram describes a packet to build. Zero values give a valid
// 48 kHz stereo 16-bit PCM audio header.
type Datagram struct {
	Rate       int // Hz from the VBAN table; 0 means 48000
	Protocol   vban.Protocol
	Samples    int  // per channel; 0 means derive from len(PCM)/Channels
	Channels   int  // 0 means 2
	Format     byte // full byte 7; 0 means 16-bit PCM
	Name       string
	Counter    uint32
	PCM        []int16
	RawPayload []byte // appended instead of PCM when non-nil
}

// Build encodes d into wire bytes. It panics on a rate outside the table,
// which is a mistake in the test itself.
func (d Datagram) Build() []byte {
	channels := d.Channels
	if channels == 0 {
		channels = 2
	}
	hz := d.Rate
	if hz == 0 {
		hz = 48000
	}
	rate, ok := vban.SampleRateFromHz(hz)
	if !ok {
		panic(fmt.Sprintf("vbantest: %d Hz is not a VBAN rate", hz))
	}
	format := d.Format
	if format == 0 {
		format = byte(vban.Resolution16Int) | byte(vban.CodecPCM)
	}
	samples := d.Samples
	if samples == 0 {
		samples = len(d.PCM) / channels
		if samples == 0 {
			samples = 1
		}
	}

	buf := make([]byte, vban.HeaderSize, vban.HeaderSize+len(d.PCM)*2+len(d.RawPayload))
	copy(buf[0:4], vban.Magic[:])
	buf[4] = byte(d.Protocol) | byte(rate)
	buf[5] = byte(samples - 1)
	buf[6] = byte(channels - 1)
	buf[7] = format
	copy(buf[8:24], d.Name)
	binary.LittleEndian.PutUint32(buf[24:28], d.Counter)

	if d.RawPayload != nil {
		return append(buf, d.RawPayload...)
	}
	for _, s := range d.PCM {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// Stereo builds a stereo packet at rate Hz named name carrying pcm
func Stereo(rate int, name string, pcm ...int16) []byte {
	return Datagram{Rate: rate, Name: name, PCM: pcm}.Build()
}
