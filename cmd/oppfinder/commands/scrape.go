package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"oppfinder-backend/lib/configutil"
	"oppfinder-backend/lib/harvest"
	"oppfinder-backend/lib/oppstore"
	"oppfinder-backend/lib/scrapers/mei"
	"oppfinder-backend/lib/scrapers/urf"
	"oppfinder-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var scrapeSources *[]string

func init() {
	scrapeSources = scrapeCmd.Flags().StringSlice(
		"source", []string{"mei", "urf"},
		"Sources to scrape, in order.",
	)
	rootCmd.AddCommand(scrapeCmd)
}

func buildSources(cfg Config) ([]harvest.Source, error) {
	cache := openCache(cfg)

	var sources []harvest.Source
	for _, name := range *scrapeSources {
		switch name {
		case "mei":
			sources = append(sources, mei.New(mei.Options{
				UserAgent: cfg.UserAgent,
				Cache:     cache,
				CacheTTL:  cfg.cacheTTL(),
			}))
		case "urf":
			cookies, err := configutil.ReadConfig[map[string]string](cfg.URF.CookiesFile)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			sources = append(sources, urf.New(urf.Options{
				UserAgent: cfg.UserAgent,
				Cookies:   cookies,
				Cache:     cache,
				CacheTTL:  cfg.cacheTTL(),
			}))
		default:
			return nil, fmt.Errorf("unknown source: %s", name)
		}
	}
	return sources, nil
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--source mei --source urf]",
	Short: "Scrapes the configured sources and merges results into the store.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		sources, err := buildSources(cfg)
		if err != nil {
			serviceutil.Fatal("failed to build sources", err)
		}

		store := openStore(cfg)
		summaries := harvest.Run(cmd.Context(), store, sources)

		t := newTable()
		t.AppendHeader(table.Row{"source", "found", "error"})
		for _, s := range summaries {
			errText := ""
			if s.Err != nil {
				errText = s.Err.Error()
			}
			t.AppendRow(table.Row{s.Source, s.Found, errText})
		}
		t.Render()

		printSourceCounts(store)
	},
}

func printSourceCounts(store oppstore.Store) {
	counts := map[string]int{}
	for _, o := range store.Load() {
		counts[o.Source]++
	}

	labels := make([]string, 0, len(counts))
	for s := range counts {
		labels = append(labels, s)
	}
	sort.Slice(labels, func(a, b int) bool {
		if counts[labels[a]] != counts[labels[b]] {
			return counts[labels[a]] > counts[labels[b]]
		}
		return labels[a] < labels[b]
	})

	t := newTable()
	t.AppendHeader(table.Row{"source", "opportunities"})
	for _, s := range labels {
		t.AppendRow(table.Row{s, counts[s]})
	}
	t.Render()
}
