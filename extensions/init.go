// Package extensions registers all built-in extensions.
package extensions

import (
	"firestige.xyz/strix/extensions/beaconspam"
	"firestige.xyz/strix/extensions/proberecon"
	"firestige.xyz/strix/pkg/extension"
)

func init() {
	extension.Register("proberecon", proberecon.New)
	extension.Register("beaconspam", beaconspam.New)
}
