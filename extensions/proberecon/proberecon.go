// Package proberecon reports probe requests seen on the air, one line per
// client and SSID pair.
package proberecon

import (
	"sync"

	"github.com/google/gopacket/layers"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/pkg/extension"
)

// broadcastSSID stands in for the zero-length SSID of a broadcast probe.
const broadcastSSID = "<broadcast>"

// Config represents proberecon-specific settings.
type Config struct {
	// TargetSSID restricts reporting to probes for one SSID. Empty
	// reports every probe.
	TargetSSID string `mapstructure:"probe_target_ssid"`
}

// Recon watches for probe requests and records which clients are looking
// for which networks. It never produces frames.
type Recon struct {
	cfg Config

	mu   sync.Mutex
	seen map[string]struct{}

	log extension.LogBuffer
}

// New constructs the extension. Registered under "proberecon".
func New(data extension.SharedData) (extension.Extension, error) {
	var cfg Config
	if err := extension.DecodeSettings(data.Settings, &cfg); err != nil {
		return nil, err
	}
	if cfg.TargetSSID == "" {
		cfg.TargetSSID = data.TargetSSID
	}
	return &Recon{
		cfg:  cfg,
		seen: make(map[string]struct{}),
	}, nil
}

func (r *Recon) Name() string {
	return "proberecon"
}

// Ingest records the probing client when the frame is a probe request.
func (r *Recon) Ingest(frame *core.Frame) ([]*core.Frame, error) {
	pkt := frame.Packet()
	dot11Layer := pkt.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return nil, nil
	}
	dot11 := dot11Layer.(*layers.Dot11)
	if dot11.Type != layers.Dot11TypeMgmtProbeReq {
		return nil, nil
	}

	// The probe request body is a bare information element chain.
	ssid := broadcastSSID
	if info, ok := core.FindInformationElement(dot11.LayerPayload(), uint8(layers.Dot11InformationElementIDSSID)); ok && len(info) > 0 {
		ssid = string(info)
	}
	if r.cfg.TargetSSID != "" && ssid != r.cfg.TargetSSID {
		return nil, nil
	}

	client := dot11.Address2.String()
	key := client + "|" + ssid

	r.mu.Lock()
	_, dup := r.seen[key]
	if !dup {
		r.seen[key] = struct{}{}
	}
	r.mu.Unlock()
	if dup {
		return nil, nil
	}

	r.log.Appendf("probe request for %q from %s", ssid, client)
	return nil, nil
}

// DrainLog returns and clears the accumulated lines.
func (r *Recon) DrainLog() ([]string, error) {
	return r.log.Drain(), nil
}
