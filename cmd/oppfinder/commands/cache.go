package commands

import (
	"fmt"

	"oppfinder-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the fetched-page cache.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints cache entry count and entry ages.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		stats := openCache(cfg).Stats()
		fmt.Printf("cached pages: %d\n", stats.Entries)
		if stats.Entries > 0 {
			fmt.Printf("oldest: %.1f hours ago\n", stats.Oldest.Hours())
			fmt.Printf("newest: %.1f hours ago\n", stats.Newest.Hours())
		}
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes all cached pages and the cache index.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		err = openCache(cfg).Clear()
		if err != nil {
			serviceutil.Fatal("failed to clear cache", err)
		}
		fmt.Println("cache cleared")
	},
}
