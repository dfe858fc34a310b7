// Package audio resolves play queries to locally retrievable audio files.
// The heavy lifting is delegated to the external yt-dlp utility; this package
// owns only the resolution contract: direct links are fetched as-is, free
// text goes through a deterministic single-result search.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
)

// Track is a resolved, locally retrievable audio resource.
type Track struct {
	Path  string
	Title string
}

// Resolver resolves a free-text query or direct link to a local track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Track, error)
}

// ErrNoResults indicates the query matched nothing upstream.
var ErrNoResults = errors.New("audio: no results for query")

// FetchError wraps any non-empty-result acquisition failure, carrying the
// utility's diagnostic output. Partial downloads are never usable.
type FetchError struct {
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("audio: fetch failed: %s", e.Detail)
	}

	return fmt.Sprintf("audio: fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// YTDLPResolver acquires audio by running yt-dlp as a subprocess.
type YTDLPResolver struct {
	logger *zap.Logger
	cfg    *config.AudioConfig
}

// NewYTDLPResolver creates a resolver backed by the configured yt-dlp binary.
func NewYTDLPResolver(logger *zap.Logger, cfg *config.Config) *YTDLPResolver {
	return &YTDLPResolver{
		logger: logger.Named("ytdlp"),
		cfg:    &cfg.Audio,
	}
}

// IsDirectLink reports whether the query is a well-formed absolute http(s)
// link. Anything else is treated as free-text search input.
func IsDirectLink(query string) bool {
	u, err := url.Parse(strings.TrimSpace(query))
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SearchTarget maps a query to the yt-dlp target: direct links pass through,
// free text becomes a single-result search.
func SearchTarget(query string) string {
	if IsDirectLink(query) {
		return strings.TrimSpace(query)
	}

	return "ytsearch1:" + strings.TrimSpace(query)
}

// Resolve downloads the best available audio-only stream for the query and
// returns its local path and title. A playlist link resolves to exactly one
// item. Returns ErrNoResults when the query matches nothing.
func (r *YTDLPResolver) Resolve(ctx context.Context, query string) (*Track, error) {
	if err := os.MkdirAll(r.cfg.DownloadDir, 0o755); err != nil {
		return nil, &FetchError{Err: err}
	}

	args := r.commandArgs(query)
	r.logger.Debug("Running yt-dlp", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, r.cfg.YTDLP, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &FetchError{Detail: lastLine(stderr.String()), Err: err}
	}

	// Two --print directives per downloaded entry: title, then final path.
	lines := nonEmptyLines(stdout.String())
	if len(lines) < 2 {
		return nil, ErrNoResults
	}

	track := &Track{
		Title: lines[len(lines)-2],
		Path:  lines[len(lines)-1],
	}

	if _, err := os.Stat(track.Path); err != nil {
		return nil, &FetchError{Detail: "downloaded file missing: " + track.Path, Err: err}
	}

	r.logger.Info("Resolved audio",
		zap.String("title", track.Title),
		zap.String("path", track.Path))

	return track, nil
}

func (r *YTDLPResolver) commandArgs(query string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
		"--geo-bypass",
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
		"--output", filepath.Join(r.cfg.DownloadDir, "%(id)s.%(ext)s"),
	}
	if r.cfg.CookiesFile != "" {
		args = append(args, "--cookies", r.cfg.CookiesFile)
	}

	return append(args, "--", SearchTarget(query))
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}

	return out
}

func lastLine(s string) string {
	lines := nonEmptyLines(s)
	if len(lines) == 0 {
		return ""
	}

	return lines[len(lines)-1]
}
