package commands

import (
	"fmt"

	"oppfinder-backend/lib/dupcheck"
	"oppfinder-backend/lib/serviceutil"
	"oppfinder-backend/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var auditThreshold *float64

func init() {
	auditThreshold = auditCmd.Flags().Float64(
		"threshold", 0.93,
		"Minimum name similarity to report (0..1).",
	)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit [--threshold 0.93]",
	Short: "Reports listings from different sources with near-identical names.",
	Long: "Reports listings from different sources with near-identical names. " +
		"These may be the same program harvested twice; review them and author " +
		"an override if one copy should be removed.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		snapshot := openStore(cfg).Load()
		pairs := dupcheck.FindSimilar(snapshot, *auditThreshold)
		if len(pairs) == 0 {
			fmt.Println("no near-duplicate names found")
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"similarity", "name", "source", "name", "source"})
		for _, p := range pairs {
			t.AppendRow(table.Row{
				fmt.Sprintf("%.3f", p.Similarity),
				textutil.Truncate(p.A.Name, 40), p.A.Source,
				textutil.Truncate(p.B.Name, 40), p.B.Source,
			})
		}
		t.Render()
	},
}
