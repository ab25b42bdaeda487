package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "firestige.xyz/strix/extensions"
	"firestige.xyz/strix/pkg/extension"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List the available extensions",
	Long: `List every extension compiled into this binary, one name per line.

Names from this list go into the extensions.enabled config section.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range extension.List() {
			fmt.Println(name)
		}
	},
}
