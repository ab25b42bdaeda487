package extension

import (
	"github.com/mitchellh/mapstructure"
)

// SharedData is the immutable configuration snapshot handed to every
// extension constructor. It is identical for all extensions in a run and
// must not be mutated after load; the manager clones the settings map
// before construction so later changes by the caller cannot leak in.
type SharedData struct {
	// Interface is the monitor-mode interface frames are captured on.
	Interface string

	// Target access point, as far as the caller knows it.
	TargetBSSID   string
	TargetSSID    string
	TargetChannel int

	// RogueAPMAC is the MAC address extensions should transmit as.
	RogueAPMAC string

	// Settings carries free-form extension-specific keys from the
	// configuration, e.g. "beacon_ssid".
	Settings map[string]string
}

// Setting returns the value for key, or "" when absent.
func (d SharedData) Setting(key string) string {
	return d.Settings[key]
}

// Clone returns a copy with its own settings map.
func (d SharedData) Clone() SharedData {
	out := d
	if d.Settings != nil {
		out.Settings = make(map[string]string, len(d.Settings))
		for k, v := range d.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// DecodeSettings decodes the free-form settings map into a typed struct
// using mapstructure tags. Input is weakly typed so numeric settings can
// be given as strings.
func DecodeSettings(settings map[string]string, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(settings)
}
