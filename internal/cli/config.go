package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/islandport/actuator/internal/config"
)

var configFilePath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate engine configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved, derived configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file, exiting non-zero on error",
	RunE:  runConfigValidate,
}

func init() {
	configShowCmd.Flags().StringVar(&configFilePath, "file", "", "path to a TOML config file (defaults to built-in defaults)")
	configValidateCmd.Flags().StringVar(&configFilePath, "file", "", "path to a TOML config file to validate")
	configValidateCmd.MarkFlagRequired("file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func loadRoot(path string) (config.Root, error) {
	if path == "" {
		return config.DefaultRoot(), nil
	}
	root, err := config.Load(path)
	if err != nil {
		return config.Root{}, err
	}
	return *root, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root, err := loadRoot(configFilePath)
	if err != nil {
		return err
	}
	derived := root.Derived()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Root    config.Root
		Derived config.DerivedConfig
	}{root, derived})
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configFilePath); err != nil {
		return fmt.Errorf("config file %s: %w", configFilePath, err)
	}
	if _, err := config.Load(configFilePath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", configFilePath)
	return nil
}
