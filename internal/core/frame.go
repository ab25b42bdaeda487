package core

import (
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// TransmitPolicy controls how long a frame stays in the outbound queue.
type TransmitPolicy int

const (
	// TransmitRepeat keeps the frame queued and re-sends it on every pass
	// of the transmit loop until shutdown. This is the zero value.
	TransmitRepeat TransmitPolicy = iota

	// TransmitOnce removes the frame from the queue after its first
	// successful send.
	TransmitOnce
)

func (p TransmitPolicy) String() string {
	switch p {
	case TransmitRepeat:
		return "repeat"
	case TransmitOnce:
		return "once"
	default:
		return "unknown"
	}
}

// Frame is a single link-layer frame, captured from or destined for a
// monitor-mode interface. Data is opaque to the manager; extensions decode
// it on demand via Packet.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	Policy    TransmitPolicy

	parseOnce sync.Once
	packet    gopacket.Packet
}

// NewFrame wraps raw bytes captured from an interface.
func NewFrame(data []byte, ts time.Time) *Frame {
	return &Frame{Data: data, Timestamp: ts}
}

// NewOutboundFrame wraps raw bytes produced by an extension for
// transmission.
func NewOutboundFrame(data []byte, policy TransmitPolicy) *Frame {
	return &Frame{Data: data, Timestamp: time.Now(), Policy: policy}
}

// Packet decodes Data as a RadioTap-framed 802.11 packet. The decode runs
// once and is cached; callers must not mutate the result.
func (f *Frame) Packet() gopacket.Packet {
	f.parseOnce.Do(func() {
		f.packet = gopacket.NewPacket(f.Data, layers.LayerTypeRadioTap, gopacket.NoCopy)
	})
	return f.packet
}
