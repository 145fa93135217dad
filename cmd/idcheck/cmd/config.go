package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
		// The subcommands work on broken configurations too, so skip the
		// root's load-and-validate step.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to idcheck.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")
			path, err := config.GenerateDefaultConfigFile(out, force)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringP("output", "o", "", "file to write (default: idcheck.yaml)")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Long: `Print the configuration after applying the config file, IDCHECK_*
environment variables and command-line flags. Problems are reported after
the configuration so that a broken file can still be inspected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loader.LoadWithFileWithoutValidation(a.cfgFile)
			if err != nil {
				return err
			}
			if used := a.loader.GetConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", used)
			}
			if err := config.WriteYAML(cmd.OutOrStdout(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			return nil
		},
	}

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "List the directories searched for idcheck.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, p := range config.GetConfigSearchPaths() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd, pathsCmd)
	return configCmd
}
