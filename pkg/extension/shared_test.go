package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingLookup(t *testing.T) {
	d := SharedData{Settings: map[string]string{"beacon_ssid": "FreeCoffee"}}

	assert.Equal(t, "FreeCoffee", d.Setting("beacon_ssid"))
	assert.Equal(t, "", d.Setting("missing"))

	// Nil settings map must not panic.
	var empty SharedData
	assert.Equal(t, "", empty.Setting("anything"))
}

func TestCloneDetachesSettings(t *testing.T) {
	original := SharedData{
		Interface: "wlan1",
		Settings:  map[string]string{"key": "value"},
	}

	clone := original.Clone()
	clone.Settings["key"] = "changed"

	assert.Equal(t, "value", original.Settings["key"])
	assert.Equal(t, "wlan1", clone.Interface)
}

func TestDecodeSettingsWeakTyping(t *testing.T) {
	type target struct {
		SSID    string `mapstructure:"beacon_ssid"`
		Channel int    `mapstructure:"beacon_channel"`
		Hidden  bool   `mapstructure:"beacon_hidden"`
	}

	var out target
	err := DecodeSettings(map[string]string{
		"beacon_ssid":    "CoffeeShop",
		"beacon_channel": "11",
		"beacon_hidden":  "true",
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "CoffeeShop", out.SSID)
	assert.Equal(t, 11, out.Channel)
	assert.True(t, out.Hidden)
}

func TestDecodeSettingsIgnoresUnknownKeys(t *testing.T) {
	type target struct {
		SSID string `mapstructure:"beacon_ssid"`
	}

	var out target
	err := DecodeSettings(map[string]string{
		"beacon_ssid": "CoffeeShop",
		"unrelated":   "setting",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "CoffeeShop", out.SSID)
}
