package commands

import (
	"fmt"

	"oppfinder-backend/lib/overrides"
	"oppfinder-backend/lib/serviceutil"
	"oppfinder-backend/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(overridesCmd)
}

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Applies manual overrides (patches and deletions) to the store.",
	Long: "Applies manual overrides to the store. Run after all scrapers so " +
		"operator corrections are not lost to a later re-harvest.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		store := openStore(cfg)
		snapshot := store.Load()
		if len(snapshot) == 0 {
			fmt.Println("store is empty - nothing to apply")
			return
		}

		file := overrides.Load(cfg.overridesPath())
		if len(file.Overrides) == 0 && len(file.BlockedSites) == 0 {
			fmt.Println("no overrides or blocked sites defined - skipping")
			return
		}

		patched, report := overrides.Apply(snapshot, file)
		err = store.Write(patched)
		if err != nil {
			serviceutil.Fatal("failed to write store", err)
		}

		if len(report.Changes) > 0 {
			t := newTable()
			t.AppendHeader(table.Row{"opportunity", "field", "old", "new"})
			for _, c := range report.Changes {
				t.AppendRow(table.Row{
					textutil.Truncate(c.Name, 40),
					c.Field,
					fmt.Sprintf("%v", c.Old),
					fmt.Sprintf("%v", c.New),
				})
			}
			t.Render()
		}
		for _, skipped := range report.SkippedFields {
			fmt.Printf("WARNING: override for %s names unknown field %q - skipped\n", skipped.ID, skipped.Field)
		}
		for _, d := range report.Deletions {
			fmt.Printf("DELETED: %s\n", textutil.Truncate(d.Name, 50))
			if d.Note != "" {
				fmt.Printf("  reason: %s\n", d.Note)
			}
		}

		fmt.Printf("\napplied %d override(s), deleted %d\n", report.Patched, len(report.Deletions))

		if len(file.BlockedSites) > 0 {
			fmt.Printf("\n--- sites to check manually (%d) ---\n", len(file.BlockedSites))
			for _, site := range file.BlockedSites {
				fmt.Printf("  %s: %s\n", site.Domain, site.Reason)
			}
		}
	},
}
