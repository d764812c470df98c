package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"plangrade/internal/model"
	"plangrade/internal/registry"
)

var taxonomyRegistryPath string

// taxonomyCmd represents the taxonomy command
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and lint the dimension taxonomy",
	Long: `Inspect the versioned dimension taxonomy and slot vocabulary.

Taxonomy evolution is an explicit, human-reviewed operation: dimensions,
weights and statuses live in the registry file, never in code. Use
'taxonomy validate' before shipping a revised registry.`,
}

var taxonomyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the loaded taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry(taxonomyRegistryPath)
		if err != nil {
			return err
		}

		fmt.Print(reg.Snapshot())
		fmt.Printf("\n%d structural, %d grounding, %d meta dimensions\n",
			len(reg.List(model.LayerStructural)),
			len(reg.List(model.LayerGrounding)),
			len(reg.List(model.LayerMeta)))
		return nil
	},
}

var taxonomyValidateCmd = &cobra.Command{
	Use:   "validate <registry.yaml>",
	Short: "Validate a taxonomy registry file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(args[0])
		if err != nil {
			return fmt.Errorf("registry invalid: %w", err)
		}

		fmt.Fprintf(os.Stderr, "✓ %s is a valid taxonomy (version %s)\n", args[0], reg.Version())
		return nil
	},
}

// loadRegistry loads a registry from a path, or the embedded default
func loadRegistry(path string) (*registry.Registry, error) {
	if path != "" {
		return registry.Load(path)
	}
	if cfgPath := loadConfig().Registry.Path; cfgPath != "" {
		return registry.Load(cfgPath)
	}
	return registry.LoadDefault()
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyShowCmd)
	taxonomyCmd.AddCommand(taxonomyValidateCmd)

	taxonomyCmd.PersistentFlags().StringVar(&taxonomyRegistryPath, "registry", "", "taxonomy registry file (default: embedded)")
}
