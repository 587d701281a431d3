package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oppfinder-backend/lib/configutil"
	"oppfinder-backend/lib/oppstore"
	"oppfinder-backend/lib/pagecache"
	"oppfinder-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type URFConfig struct {
	CookiesFile string `json:"cookies_file"`
}

type Config struct {
	DataDir       string    `json:"data_dir"`
	CacheTTLHours int       `json:"cache_ttl_hours"`
	UserAgent     string    `json:"user_agent"`
	URF           URFConfig `json:"urf"`
}

func (c Config) storePath() string {
	return filepath.Join(c.DataDir, "opportunities.json")
}

func (c Config) overridesPath() string {
	return filepath.Join(c.DataDir, "overrides.json")
}

func (c Config) cacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

func (c Config) cacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// readConfig loads oppfinder.json5; a missing file just means
// defaults.
func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config]("oppfinder.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.CacheTTLHours == 0 {
		cfg.CacheTTLHours = 12
	}
	if cfg.URF.CookiesFile == "" {
		cfg.URF.CookiesFile = "cookies.json5"
	}
	return cfg, nil
}

func openStore(cfg Config) oppstore.Store {
	return oppstore.New(cfg.storePath())
}

func openCache(cfg Config) pagecache.Cache {
	return pagecache.New(cfg.cacheDir())
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "oppfinder",
	Short: "oppfinder harvests fellowship/grant listings into one tagged, deduplicated store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
