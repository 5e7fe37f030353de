package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"vpnarch/internal/app"
	"vpnarch/internal/config"
	"vpnarch/internal/logging"
	"vpnarch/internal/setup"
)

var version = "0.1.0"

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	cfgFile  string
	model    string
	provider string
	preset   string
	logLevel string
	runSetup bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "vpnarch",
		Short: "AI-generated VPN setup guides",
		Long: `VPN Architect walks you through choosing a VPN protocol, a server
platform and a client device, then streams a step-by-step setup guide
written by a generative model (Gemini or a local Ollama model).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runApp(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/vpnarch/config.yaml)")
	flags.StringVar(&opts.model, "model", "", "model to use (default is "+config.DefaultModel+")")
	flags.StringVar(&opts.provider, "provider", "", "backend to use: gemini or ollama")
	flags.StringVar(&opts.preset, "preset", "", "backend preset: fast, balanced, thorough or local")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&opts.runSetup, "setup", false, "run the setup wizard")

	rootCmd.AddCommand(
		newGenerateCmd(opts),
		newOptionsCmd(),
		newHistoryCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "vpnarch version %s\n", version)
			},
		},
	)
	return rootCmd
}

func (o *rootOptions) configPath() string {
	if o.cfgFile != "" {
		return o.cfgFile
	}
	return config.ConfigPath()
}

// loadConfig loads the config file and applies command-line overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := o.applyOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) applyOverrides(cfg *config.Config) error {
	if o.preset != "" && !cfg.ApplyPreset(o.preset) {
		return fmt.Errorf("unknown preset %q (available: %v)", o.preset, config.ListPresets())
	}
	if o.provider != "" {
		cfg.API.Provider = strings.ToLower(o.provider)
		if cfg.API.Provider == config.ProviderOllama && strings.HasPrefix(cfg.Model.Name, "gemini") {
			cfg.Model.Name = config.DefaultOllamaModel
		}
	}
	if o.model != "" {
		cfg.Model.Name = o.model
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return nil
}

func (o *rootOptions) runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()

	if o.runSetup {
		if _, err := setup.NewWizard(os.Stdin, cmd.OutOrStdout(), o.configPath()).Run(ctx); err != nil {
			return err
		}
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	// No API key configured: run the setup wizard, then reload
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingAuth) {
			return err
		}
		if _, err := setup.NewWizard(os.Stdin, cmd.OutOrStdout(), o.configPath()).Run(ctx); err != nil {
			return err
		}
		if cfg, err = o.loadConfig(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.Version = version

	if err := logging.EnableFileLogging(config.ConfigDir(), logging.ParseLevel(cfg.Logging.Level)); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	return app.New(ctx, cfg).Run()
}
