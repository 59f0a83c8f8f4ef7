package main

import (
	"os"

	"github.com/spf13/cobra"

	"textmacro-go/infrastructure/config"
)

// Version is the application version, set at build time with
// -ldflags "-X main.Version=1.2.3".
var Version = "dev"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	verbose    bool
}

// resolveConfigPath returns the --config value, or the default config file
// when it exists, or "" to run on built-in defaults.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if _, err := os.Stat(config.DefaultPath()); err == nil {
		return config.DefaultPath()
	}
	return ""
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "textmacro",
		Short: "Watch screen regions for text and run input actions when it appears.",
		Long: `textmacro repeatedly captures configured screen regions, recognizes their
text and runs a region's actions (clicks, key presses, typing, waits) when the
text contains the region's target or matches a comparison region.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default is "+config.DefaultPath()+" when present)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging and per-cycle output")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newRunCmd(opts),
		newShellCmd(opts),
		newTestCmd(opts),
		newSetsCmd(opts),
		newRegionsCmd(opts),
		newRegionCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newHistoryCmd(opts),
		newDisplaysCmd(),
		newConfigCmd(opts),
	)
	return root
}
