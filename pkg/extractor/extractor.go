// Package extractor shells out to yt-dlp for post metadata and media
// downloads. The tool handles the embedded-player handshake and format
// negotiation; everything returned is treated as an untrusted JSON payload.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"reelscraper/pkg/config"
	"reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
	"reelscraper/pkg/payload"
	"reelscraper/pkg/retry"
)

const binaryName = "yt-dlp"

// YtDlp wraps the yt-dlp binary.
type YtDlp struct {
	binary          string
	userAgent       string
	cookiesPath     string
	format          string
	retries         int
	includeComments bool
	logger          logger.Logger
}

// New creates an extractor from the resolved configuration.
func New(cfg *config.Config, log logger.Logger) *YtDlp {
	if log == nil {
		log = logger.GetLogger()
	}
	return &YtDlp{
		binary:          binaryName,
		userAgent:       cfg.Instagram.UserAgent,
		cookiesPath:     cfg.Instagram.CookiesPath,
		format:          cfg.Extractor.Format,
		retries:         cfg.Extractor.Retries,
		includeComments: cfg.Instagram.IncludeComments,
		logger:          log,
	}
}

// FetchInfo runs a metadata-only extraction for the URL and returns the
// decoded JSON document. Playlist wrappers are unwrapped to their first
// entry so callers always see a single media item.
func (y *YtDlp) FetchInfo(ctx context.Context, url string) (payload.RawPayload, error) {
	args := []string{
		"-J",
		"--no-playlist",
		"--no-warnings",
		"--retries", strconv.Itoa(y.retries),
		"--user-agent", y.userAgent,
	}
	if y.cookiesPath != "" {
		args = append(args, "--cookies", y.cookiesPath)
	}
	if y.includeComments {
		args = append(args, "--write-comments")
	}
	args = append(args, url)

	y.logger.DebugWithFields("running metadata extraction", map[string]interface{}{
		"url": url,
	})

	stdout, err := y.run(ctx, args)
	if err != nil {
		return nil, errors.Wrap(errors.KindRequest, "metadata extraction failed", err)
	}

	var doc payload.RawPayload
	if err := json.Unmarshal(stdout, &doc); err != nil {
		return nil, errors.Wrap(errors.KindRequest, "extractor produced invalid JSON", err)
	}

	doc = unwrapPlaylist(doc)
	if len(doc) == 0 {
		return nil, errors.New(errors.KindRequest, "extractor produced an empty payload")
	}
	return doc, nil
}

// Download fetches the media file for the URL to dest, retrying transient
// failures with backoff.
func (y *YtDlp) Download(ctx context.Context, url, dest string) error {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--user-agent", y.userAgent,
		"-f", y.format,
		"-o", dest,
		"--force-overwrites",
		"--merge-output-format", "mp4",
	}
	if y.cookiesPath != "" {
		args = append(args, "--cookies", y.cookiesPath)
	}
	args = append(args, url)

	retryCfg := retry.DefaultConfig()
	retryCfg.Context = ctx
	retryCfg.Logger = y.logger
	if y.retries > 0 {
		retryCfg.MaxAttempts = y.retries
	}

	err := retry.Do(func() error {
		y.logger.InfoWithFields("downloading media", map[string]interface{}{
			"url":  url,
			"dest": dest,
		})
		_, runErr := y.run(ctx, args)
		return runErr
	}, retryCfg)
	if err != nil {
		return errors.Wrap(errors.KindMediaDownload, "media download failed", err)
	}
	return nil
}

// run executes the binary and returns stdout. On failure the stderr tail is
// folded into the error so logs show what the tool complained about.
func (y *YtDlp) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, y.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", y.binary, err, stderrTail(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func stderrTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "; ")
}

// unwrapPlaylist descends through playlist wrappers, which yt-dlp still
// emits for some URL shapes even with --no-playlist, taking the first entry
// at each level.
func unwrapPlaylist(doc payload.RawPayload) payload.RawPayload {
	for doc != nil && doc.String("_type") == "playlist" {
		entries := doc.List("entries")
		if len(entries) == 0 {
			return nil
		}
		entry, ok := entries[0].(map[string]interface{})
		if !ok {
			return nil
		}
		doc = payload.RawPayload(entry)
	}
	return doc
}
