package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LJTian/NILHub/internal/app"
	"github.com/LJTian/NILHub/internal/collector"
	"github.com/LJTian/NILHub/internal/config"
	"github.com/LJTian/NILHub/internal/logger"
	"github.com/LJTian/NILHub/internal/ranking"
	"github.com/LJTian/NILHub/internal/storage"
)

var (
	kindFlag     string
	limitFlag    int
	categoryFlag string
)

// 一个仅执行一次采集任务的命令行入口：适合手动触发采集或排查数据源
func main() {
	rootCmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one NIL crawl pass and exit",
		RunE:  runCollect,
	}
	rootCmd.Flags().StringVarP(&kindFlag, "kind", "k", "all", "which sources to crawl: story, social, all")

	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(topCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured feed sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			reg, err := collector.LoadRegistry(cfg.SourcesFile)
			if err != nil {
				return err
			}
			for _, s := range reg.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-7s %-32s %s\n", s.Kind, s.Name, s.URL)
			}
			return nil
		},
	}
}

func topCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the highest ranked records as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New("nilhub-collect")
			a, err := app.Build(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Ranking.Query(cmd.Context(), ranking.Query{
				Filter: storage.Filter{Category: categoryFlag},
				Limit:  limitFlag,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 10, "number of records")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "only this category")
	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	kinds, err := parseKinds(kindFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New("nilhub-collect")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, k := range kinds {
		stats, err := a.Crawlers[k].RunPass(ctx)
		if err != nil {
			return fmt.Errorf("%s pass: %w", k, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted=%d duplicates=%d irrelevant=%d empty=%d sourceErrors=%d storeErrors=%d\n",
			k, stats.Inserted, stats.Duplicates, stats.Irrelevant, stats.Empty, stats.SourceErrors, stats.StoreErrors)
	}
	return nil
}

func parseKinds(s string) ([]collector.Kind, error) {
	switch s {
	case "all":
		return []collector.Kind{collector.KindStory, collector.KindSocial}, nil
	case string(collector.KindStory):
		return []collector.Kind{collector.KindStory}, nil
	case string(collector.KindSocial):
		return []collector.Kind{collector.KindSocial}, nil
	}
	return nil, fmt.Errorf("unknown kind %q (story|social|all)", s)
}
