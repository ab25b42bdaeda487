package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/strix/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting anything, then print the
effective configuration with all defaults applied.

Examples:
  strix validate -c strix.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

func runValidateCommand() {
	rendered, err := loadAndRender(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: %s\n", configFile)
	fmt.Print(rendered)
}

// loadAndRender loads a config file and renders the effective configuration,
// defaults applied, as YAML.
func loadAndRender(path string) (string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return "", err
	}

	out, err := yaml.Marshal(map[string]*config.Config{"strix": cfg})
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(out), nil
}
