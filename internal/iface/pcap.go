package iface

import (
	"fmt"

	"github.com/google/gopacket/pcap"

	"firestige.xyz/strix/internal/core"
)

const pcapKind = "pcap"

func init() {
	Register(pcapKind, openPCAP)
}

// pcapHandle wraps a live libpcap handle on a monitor-mode interface.
type pcapHandle struct {
	handle *pcap.Handle
}

func openPCAP(opts Options) (Handle, error) {
	inactive, err := pcap.NewInactiveHandle(opts.Interface)
	if err != nil {
		return nil, fmt.Errorf("pcap: create handle for %s: %w", opts.Interface, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(opts.SnapLen); err != nil {
		return nil, fmt.Errorf("pcap: set snaplen: %w", err)
	}
	if err := inactive.SetPromisc(opts.Promiscuous); err != nil {
		return nil, fmt.Errorf("pcap: set promiscuous: %w", err)
	}
	if opts.RFMon {
		// Only when asked: enabling monitor mode on an interface that is
		// already in monitor mode fails on most drivers.
		if err := inactive.SetRFMon(true); err != nil {
			return nil, fmt.Errorf("pcap: enable monitor mode on %s: %w", opts.Interface, err)
		}
	}
	// The read timeout doubles as the stop-predicate poll interval in
	// CaptureOne.
	if err := inactive.SetTimeout(opts.PollTimeout); err != nil {
		return nil, fmt.Errorf("pcap: set timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("pcap: activate %s: %w", opts.Interface, err)
	}

	if opts.Role == RoleCapture && opts.BPFFilter != "" {
		if err := handle.SetBPFFilter(opts.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("pcap: set filter %q: %w", opts.BPFFilter, err)
		}
	}

	return &pcapHandle{handle: handle}, nil
}

func (h *pcapHandle) CaptureOne(stop func() bool) (*core.Frame, error) {
	for {
		if stop() {
			return nil, core.ErrCaptureStopped
		}

		data, ci, err := h.handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			// Poll tick with no traffic; re-check the predicate.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pcap: read: %w", err)
		}

		// ReadPacketData hands us our own copy, safe to keep past the
		// next read.
		return core.NewFrame(data, ci.Timestamp), nil
	}
}

func (h *pcapHandle) Send(frame *core.Frame) error {
	if err := h.handle.WritePacketData(frame.Data); err != nil {
		return fmt.Errorf("pcap: write: %w", err)
	}
	return nil
}

func (h *pcapHandle) Close() error {
	h.handle.Close()
	return nil
}
