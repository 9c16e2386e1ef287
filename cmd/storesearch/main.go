package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hession/storesearch/internal/cli"
	"github.com/hession/storesearch/internal/config"
	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/logger"
	"github.com/hession/storesearch/internal/search"
)

var errSearchFailed = errors.New(search.ErrorMessage)

func main() {
	err := newRootCmd(os.Stdout).Execute()
	_ = logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "storesearch",
		Short: "StoreSearch - Search the iTunes Store from your terminal",
		Long: `StoreSearch searches the iTunes Store for music, apps and e-books.

Run without arguments for an interactive prompt, or use "storesearch search"
for a single query.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configDir)
			if err != nil {
				return err
			}
			return cli.Run(cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")
	rootCmd.SetOut(out)

	rootCmd.AddCommand(
		newSearchCmd(&configDir),
		newHistoryCmd(&configDir),
		newConfigCmd(&configDir),
		newVersionCmd(),
	)
	return rootCmd
}

func newSearchCmd(configDir *string) *cobra.Command {
	var (
		category string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Run a single search and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configDir)
			if err != nil {
				return err
			}

			cat := cfg.Category()
			if cmd.Flags().Changed("category") {
				if cat, err = itunes.ParseCategory(category); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := itunes.NewClient(cfg.Store.BaseURL, cfg.Store.UserAgent, cfg.Timeout())
			st, err := cli.SearchOnce(ctx, client, strings.Join(args, " "), cat, cfg.LanguageTag())
			if err != nil {
				return err
			}

			if store := cli.OpenHistory(cfg); store != nil {
				if err := cli.RecordState(store, st); err != nil {
					logger.Warn("failed to record search", "error", err)
				}
				store.Close()
			}

			if st.Kind == search.NetworkError {
				return errSearchFailed
			}
			return cli.WriteOutcome(cmd.OutOrStdout(), st, asJSON)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "all, music, software or ebooks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result envelope as JSON")
	return cmd
}

func newHistoryCmd(configDir *string) *cobra.Command {
	var (
		limit    int
		clearAll bool
		deleteID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, delete or clear recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configDir)
			if err != nil {
				return err
			}
			store := cli.OpenHistory(cfg)
			if store == nil {
				return fmt.Errorf("search history is disabled or unavailable")
			}
			defer store.Close()

			if deleteID != "" {
				if err := store.Delete(deleteID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History entry deleted")
				return nil
			}

			if clearAll {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared")
				return nil
			}

			if limit <= 0 {
				limit = cfg.History.MaxEntries
			}
			entries, err := store.Recent(limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%d\t%s\n",
					e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Category, e.Outcome, e.ResultCount, e.Term)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries to show (default history.max_entries)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all entries")
	cmd.Flags().StringVar(&deleteID, "delete", "", "delete the entry with this ID")
	cmd.MarkFlagsMutuallyExclusive("clear", "delete")
	return cmd
}

func newConfigCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file path: %s\n", path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StoreSearch v%s\n", cli.Version)
		},
	}
}

// setup loads configuration and starts the logger.
func setup(configDir string) (*config.Config, error) {
	if configDir != "" {
		config.SetConfigDir(configDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.LoggerConfig(config.LogDir())); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	logConfigInfo(cfg)
	return cfg, nil
}

// logConfigInfo records the effective configuration at startup.
func logConfigInfo(cfg *config.Config) {
	historyDB := cfg.History.DBPath
	if !cfg.History.Enabled {
		historyDB = "disabled"
	}
	logger.Info("configuration loaded",
		"base_url", cfg.Store.BaseURL,
		"timeout", cfg.Timeout(),
		"category", cfg.Category(),
		"locale", cfg.LanguageTag(),
		"history", historyDB,
		"log_level", cfg.Log.Level,
	)
}

// contextOrBackground keeps cobra commands runnable outside Execute.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
