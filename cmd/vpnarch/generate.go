package main

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vpnarch/internal/app"
	"vpnarch/internal/fileutil"
	"vpnarch/internal/logging"
	"vpnarch/internal/prefs"
	"vpnarch/internal/ui"
)

func newGenerateCmd(root *rootOptions) *cobra.Command {
	var (
		protocol, serverOS, clientOS string
		output                       string
		render, noColor              bool
		width                        int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one setup guide without the interactive wizard",
		Example: `  vpnarch generate --protocol wireguard --server ubuntu --client ios
  vpnarch generate --protocol openvpn --server docker --client windows --no-color > guide.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePreferences(protocol, serverOS, clientOS)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			cfg.Version = version

			// Guide text goes to stdout, everything else to stderr
			logging.Configure(logging.ParseLevel(cfg.Logging.Level), cmd.ErrOrStderr())

			a := app.New(cmd.Context(), cfg)
			defer a.Close()

			opts := ui.PrinterOptions{
				Render:       render,
				NoColor:      noColor,
				GlamourStyle: cfg.UI.GlamourStyle,
				CodeStyle:    cfg.UI.CodeStyle,
				Width:        width,
			}
			if output == "" {
				return a.Generate(cmd.Context(), p, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
			}

			// Files get the raw markdown, written only once the guide is complete
			var buf bytes.Buffer
			opts.Render, opts.NoColor = false, true
			if err := a.Generate(cmd.Context(), p, &buf, cmd.ErrOrStderr(), opts); err != nil {
				return err
			}
			if err := fileutil.AtomicWrite(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to save guide: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "已保存到 %s\n", output)
			return nil
		},
	}

	d := prefs.Default()
	cmd.Flags().StringVarP(&protocol, "protocol", "p", string(d.Protocol), "VPN protocol")
	cmd.Flags().StringVarP(&serverOS, "server", "s", string(d.ServerOS), "server platform")
	cmd.Flags().StringVarP(&clientOS, "client", "c", string(d.ClientOS), "client device")
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the guide as markdown to this file")
	cmd.Flags().BoolVar(&render, "render", false, "render the finished guide with glamour instead of streaming it")
	cmd.Flags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "write the guide as plain markdown")
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for rendered output")
	return cmd
}

func parsePreferences(protocol, serverOS, clientOS string) (prefs.Preferences, error) {
	var p prefs.Preferences
	var err error
	if p.Protocol, err = prefs.ParseProtocol(protocol); err != nil {
		return p, err
	}
	if p.ServerOS, err = prefs.ParseServerOS(serverOS); err != nil {
		return p, err
	}
	if p.ClientOS, err = prefs.ParseClientOS(clientOS); err != nil {
		return p, err
	}
	return p, nil
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the selectable protocols, servers and clients",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			sections := []struct {
				flag    string
				options []prefs.Option
			}{
				{"--protocol", prefs.ProtocolOptions()},
				{"--server", prefs.ServerOptions()},
				{"--client", prefs.ClientOptions()},
			}
			for i, s := range sections {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s\n", s.flag)
				for _, opt := range s.options {
					fmt.Fprintf(w, "  %s\t%s\t%s\n", opt.Value, opt.Title, opt.Description)
				}
			}
			w.Flush()
		},
	}
}
