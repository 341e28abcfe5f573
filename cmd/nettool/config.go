package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KilimcininKorOglu/nettool/internal/config"
)

// NewCmdVersion creates the version command.
func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "nettool %s\n", version)
			fmt.Fprintf(w, "  Commit: %s\n", commit)
			fmt.Fprintf(w, "  Built:  %s\n", date)
			fmt.Fprintf(w, "  Config: %s\n", config.GetConfigPath())
		},
	}
}

// NewCmdConfig creates the config command.
func NewCmdConfig(o *options) *cobra.Command {
	var (
		initFile bool
		show     bool
		example  bool
		path     bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the nettool configuration file.

Commands:
  nettool config --init      Create default config file
  nettool config --show      Show the effective configuration
  nettool config --example   Print an annotated example file
  nettool config --path      Show config file path`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			switch {
			case path:
				fmt.Fprintln(w, config.GetConfigPath())
				return nil

			case initFile:
				target := config.GetConfigPath()
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists: %s", target)
				}
				if err := config.DefaultConfig().Save(); err != nil {
					return fmt.Errorf("failed to create config: %w", err)
				}
				fmt.Fprintf(w, "Created config file: %s\n", target)
				fmt.Fprintln(w, "\nEdit this file to customize defaults.")
				fmt.Fprintln(w, "Example: set 'probe_method: tcp' under 'defaults:' to always use TCP probes.")
				return nil

			case show:
				cfg := o.cfg
				if cfg == nil {
					cfg = config.DefaultConfig()
				}
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err

			case example:
				fmt.Fprint(w, config.GenerateExample())
				return nil
			}

			return cmd.Help()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&initFile, "init", false, "Create default config file")
	f.BoolVar(&show, "show", false, "Show the effective configuration")
	f.BoolVar(&example, "example", false, "Print an annotated example configuration")
	f.BoolVar(&path, "path", false, "Show config file path")

	return cmd
}
