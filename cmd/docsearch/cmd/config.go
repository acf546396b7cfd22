package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigInitCmd(a), newConfigBackupsCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after files and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOut {
				return output.New(cmd.OutOrStdout()).JSON(a.cfg)
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		force bool
		user  bool
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file with the default values",
		Long: `Init writes ` + config.ProjectConfigFile + ` in --config-dir, or the user config
file with --user. The file is a commented template; --full writes every key
instead. An existing file is kept unless --force is given, in which case it
is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(a.flags.configDir, config.ProjectConfigFile)
			tmpl := config.ProjectTemplate
			if user {
				path = config.GetUserConfigPath()
				tmpl = config.UserTemplate
			}

			out := output.New(cmd.OutOrStdout())
			if _, err := os.Stat(path); err == nil {
				if !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				backup, err := config.BackupFile(path)
				if err != nil {
					return err
				}
				out.Statusf("", "Backed up existing config to %s", backup)
			}

			write := func() error { return config.WriteTemplate(path, tmpl) }
			if full {
				write = func() error { return config.NewConfig().WriteYAML(path) }
			}
			if err := write(); err != nil {
				return err
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file after backing it up")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&full, "full", false, "Write every key with its default instead of the commented template")
	return cmd
}

func newConfigBackupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups of the project config, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := config.ListBackups(filepath.Join(a.flags.configDir, config.ProjectConfigFile))
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			if len(backups) == 0 {
				out.Status("", "No backups")
				return nil
			}
			for _, b := range backups {
				out.Status("", b)
			}
			return nil
		},
	}
}
