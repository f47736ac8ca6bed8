package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/quietwin/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.configPath
			if p == "" {
				var err error
				if p, err = config.DefaultConfigPath(); err != nil {
					return usageError("config", err)
				}
			}
			writeLine(a.stdout, p)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the config file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.loadConfig()
			if err != nil {
				return err
			}
			if len(res.Files) == 0 {
				writeLine(a.stdout, "config: ok (no file at "+res.Path+", using defaults)")
				return nil
			}
			writeLine(a.stdout, "config: ok ("+strings.Join(res.Files, ", ")+")")
			return nil
		},
	}

	var defaults bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultConfig()
			if !defaults {
				res, err := a.loadConfig()
				if err != nil {
					return err
				}
				cfg = res.Config
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, string(data))
			return nil
		},
	}
	printCmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults, ignoring files")

	explainCmd := &cobra.Command{
		Use:   "explain [yaml.path]",
		Short: "Show a setting's effective value and where it came from",
		Long: `Show a setting's effective value and where it came from. Without a path,
every known setting is listed.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.loadConfig()
			if err != nil {
				return err
			}
			paths := config.Paths()
			if len(args) == 1 {
				paths = args
			}
			for _, p := range paths {
				value, src, err := config.Explain(res, p)
				if err != nil {
					return usageError("config", err)
				}
				if len(args) == 1 {
					out, err := yaml.Marshal(value)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.stdout, "path: %s\nsource: %s\nvalue:\n%s", p, formatSource(src), out)
					return nil
				}
				fmt.Fprintf(a.stdout, "%s = %v  (%s)\n", p, value, formatSource(src))
			}
			return nil
		},
	}

	cmd.AddCommand(pathCmd, validateCmd, printCmd, explainCmd)
	return cmd
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		return "default"
	}
	return string(src.Kind)
}
