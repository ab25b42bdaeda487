package iface

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/strix/internal/core"
)

const replayKind = "replay"

func init() {
	Register(replayKind, openReplay)
}

// replayHandle reads frames from a pcap file instead of a live interface
// and records injected frames to another. Frames are delivered as fast as
// the reader can go; there is no pacing by capture timestamp.
type replayHandle struct {
	file   *os.File
	reader *pcapgo.Reader
	writer *pcapgo.Writer
}

func openReplay(opts Options) (Handle, error) {
	if opts.Role == RoleTransmit {
		if opts.ReplayOutput == "" {
			// No output file configured: injected frames are discarded.
			return &replayHandle{}, nil
		}
		f, err := os.Create(opts.ReplayOutput)
		if err != nil {
			return nil, fmt.Errorf("replay: create %s: %w", opts.ReplayOutput, err)
		}
		w := pcapgo.NewWriter(f)
		snapLen := opts.SnapLen
		if snapLen <= 0 {
			snapLen = 65535
		}
		if err := w.WriteFileHeader(uint32(snapLen), layers.LinkTypeIEEE80211Radio); err != nil {
			f.Close()
			return nil, fmt.Errorf("replay: write header to %s: %w", opts.ReplayOutput, err)
		}
		return &replayHandle{file: f, writer: w}, nil
	}

	if opts.ReplayInput == "" {
		return nil, fmt.Errorf("replay: no input file configured")
	}
	f, err := os.Open(opts.ReplayInput)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", opts.ReplayInput, err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay: read header from %s: %w", opts.ReplayInput, err)
	}
	return &replayHandle{file: f, reader: r}, nil
}

func (h *replayHandle) CaptureOne(stop func() bool) (*core.Frame, error) {
	if stop() {
		return nil, core.ErrCaptureStopped
	}
	if h.reader == nil {
		return nil, fmt.Errorf("replay: handle not opened for capture")
	}

	data, ci, err := h.reader.ReadPacketData()
	if err == io.EOF {
		// Input exhausted counts as a clean stop, not a failure.
		return nil, core.ErrCaptureStopped
	}
	if err != nil {
		return nil, fmt.Errorf("replay: read: %w", err)
	}
	return core.NewFrame(data, ci.Timestamp), nil
}

func (h *replayHandle) Send(frame *core.Frame) error {
	if h.writer == nil {
		return nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     frame.Timestamp,
		CaptureLength: len(frame.Data),
		Length:        len(frame.Data),
	}
	if err := h.writer.WritePacket(ci, frame.Data); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	return nil
}

func (h *replayHandle) Close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}
