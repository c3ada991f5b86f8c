package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nescampos/ainalyst/internal/status"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved research runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "show at most this many runs")
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runs, err := status.ListRuns(cfg.OutputDir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(runs) == 0 {
		fmt.Fprintf(out, "No research runs found in %s.\n", cfg.OutputDir)
		fmt.Fprintln(out, "Run 'ainalyst research <query>' to start one.")
		return nil
	}
	if listLimit > 0 && len(runs) > listLimit {
		runs = runs[:listLimit]
	}

	for _, r := range runs {
		marker := "  "
		if r.Degradations > 0 {
			marker = " !"
		}
		fmt.Fprintf(out, "%s %s  %-40s  %2d slides  %s\n",
			marker, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Name, r.Slides, r.ID)
	}
	return nil
}
