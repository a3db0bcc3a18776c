package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"reelscraper/pkg/config"
	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/scraper"
)

var (
	// Scrape command flags
	downloadVideo bool
	noComments    bool
	maxComments   int
	outputDir     string
	cookiesPath   string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape a single Instagram post, reel, or IGTV item",
	Long: `Scrape one post by URL and print the enriched result as JSON.

Any post, reel, or IGTV URL shape is accepted; the scraper canonicalizes
it before fetching. Comments, counts, audio, and profiles are collected on
a best-effort basis; the per-stage outcome is reported in the result's
enrichment block.`,
	Example: `  # Scrape a reel
  reelscraper scrape https://www.instagram.com/reel/DAbCdEfGhIj/

  # Scrape and download the video file
  reelscraper scrape https://www.instagram.com/p/DAbCdEfGhIj/ --download

  # Skip comment collection
  reelscraper scrape https://www.instagram.com/reel/DAbCdEfGhIj/ --no-comments

  # Use an authenticated session
  reelscraper scrape https://www.instagram.com/reel/DAbCdEfGhIj/ --cookies ./cookies.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().BoolVarP(&downloadVideo, "download", "d", false, "download the media file")
	scrapeCmd.Flags().BoolVar(&noComments, "no-comments", false, "skip comment collection")
	scrapeCmd.Flags().IntVar(&maxComments, "max-comments", -1, "maximum number of comments to collect")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory for downloaded media")
	scrapeCmd.Flags().StringVar(&cookiesPath, "cookies", "", "path to a Netscape cookies.txt export")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	rawURL := strings.TrimSpace(args[0])

	flags := make(map[string]interface{})
	if cookiesPath != "" {
		flags["cookies"] = cookiesPath
	}
	if maxComments >= 0 {
		flags["max-comments"] = maxComments
	}
	if noComments {
		flags["no-comments"] = true
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("reel scraper starting")

	s, err := scraper.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := s.Scrape(ctx, rawURL, downloadVideo)
	if err != nil {
		log.ErrorWithFields("scrape failed", map[string]interface{}{
			"url":   rawURL,
			"kind":  string(errors.KindOf(err)),
			"error": err.Error(),
		})
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
