// Package document loads transcripts and reference filings from disk or the web.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/alphasentinel/internal/model"
	"github.com/ppiankov/alphasentinel/internal/util"
	"github.com/ppiankov/alphasentinel/internal/worker"
)

// pageSeparator splits pages in paginated text, as pdftotext emits it
const pageSeparator = "\f"

// ErrNotFound reports a missing document source
var ErrNotFound = errors.New("document not found")

// ErrDisallowed reports a URL blocked by robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Loader reads reference documents from files or URLs
type Loader struct {
	fetcher *Fetcher
	robots  *util.RobotsChecker
	limiter *worker.Limiter
	logger  *slog.Logger
}

// NewLoader creates a loader from HTTP settings. limiter may be nil.
func NewLoader(cfg model.HTTPConfig, limiter *worker.Limiter, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	l := &Loader{
		fetcher: NewFetcher(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		limiter: limiter,
		logger:  logger,
	}
	if cfg.RespectRobots {
		l.robots = util.NewRobotsChecker(cfg.UserAgent, l.fetcher.httpClient, cfg.Timeout)
	}
	return l
}

// LoadReference loads the filing at source, a local path or an http(s) URL.
// A missing source returns an error wrapping ErrNotFound.
func (l *Loader) LoadReference(ctx context.Context, source string) (*model.ReferenceDocument, error) {
	if isURL(source) {
		return l.loadURL(ctx, source)
	}
	return LoadReferenceFile(source)
}

// LoadReferenceFile reads a plain, form-feed paginated, or HTML filing from disk
func LoadReferenceFile(path string) (*model.ReferenceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		text, err = ExtractVisibleText(text)
		if err != nil {
			return nil, fmt.Errorf("parse html %s: %w", path, err)
		}
	}

	return model.NewReferenceDocument(path, SplitPages(text)), nil
}

// LoadTranscript reads a transcript file as UTF-8 text
func LoadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("transcript %s is not valid UTF-8", path)
	}
	return string(data), nil
}

// SplitPages splits text on form feeds. Text without form feeds is a single page.
func SplitPages(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	pages := strings.Split(text, pageSeparator)
	// pdftotext ends the last page with a form feed
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*model.ReferenceDocument, error) {
	if l.robots != nil {
		allowed, delay, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if l.limiter != nil {
			host, _ := url.Parse(rawURL)
			if err := l.limiter.WaitWithDelay(ctx, host.Host, delay); err != nil {
				return nil, err
			}
		}
	} else if l.limiter != nil {
		if err := l.limiter.WaitURL(ctx, rawURL); err != nil {
			return nil, err
		}
	}

	result, err := l.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if result.Truncated {
		l.logger.Warn("filing truncated at size limit", "url", rawURL, "bytes", len(result.Body))
	}

	text := string(result.Body)
	if isHTML(result.ContentType, result.FinalURL) {
		text, err = ExtractVisibleText(text)
		if err != nil {
			return nil, fmt.Errorf("parse html %s: %w", rawURL, err)
		}
	}

	l.logger.Debug("fetched filing", "url", result.FinalURL, "content_type", result.ContentType, "chars", utf8.RuneCountInString(text))
	return model.NewReferenceDocument(result.FinalURL, SplitPages(text)), nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func isHTML(contentType, finalURL string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType == "text/html" || mediaType == "application/xhtml+xml"
	}
	ext := strings.ToLower(filepath.Ext(finalURL))
	return ext == ".htm" || ext == ".html"
}
