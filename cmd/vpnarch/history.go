package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vpnarch/internal/audit"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit      int
		clearAll   bool
		showErrors bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently generated guides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			history, err := audit.NewLogger(filepath.Dir(cfg.Path), cfg.History.MaxEntries)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if clearAll {
				if err := history.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, "历史记录已清空。")
				return nil
			}

			if history.Len() == 0 {
				fmt.Fprintln(out, "暂无生成记录。")
				return nil
			}
			entries := history.Recent(limit)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tPROTOCOL\tSERVER\tCLIENT\tMODEL\tSTATE\tDURATION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"),
					e.Protocol, e.ServerOS, e.ClientOS, e.Model, e.State,
					e.Duration.Round(100*time.Millisecond))
				if showErrors && e.Error != "" {
					fmt.Fprintf(w, "\t↳ %s\n", e.Error)
				}
			}
			w.Flush()

			stats := history.Stats()
			fmt.Fprintf(out, "\n共 %d 次生成: %d 成功, %d 失败\n", stats.Total, stats.Completed, stats.Failed)
			fmt.Fprintf(out, "记录文件: %s\n", history.Path())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete the history")
	cmd.Flags().BoolVar(&showErrors, "errors", false, "show failure causes")
	return cmd
}
