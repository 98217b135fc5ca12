// internal/downloader/downloader.go
package downloader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kameel77/auto-scraper/internal/ratelimit"
	"github.com/kameel77/auto-scraper/internal/retry"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one image download
type Result struct {
	URL      string
	FilePath string
	Size     int64
	Skipped  bool // file already present
	Error    error
	Duration time.Duration
}

// OK reports whether the file is on disk
func (r *Result) OK() bool { return r.Error == nil }

// Job is one file to fetch into Dir under Filename
type Job struct {
	URL      string
	Dir      string
	Filename string
}

// Options configures a Downloader
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Retry     retry.Config
	Limiter   ratelimit.RateLimiter
	Client    *http.Client
}

// Downloader streams files to disk under the shared per-host throttle
type Downloader struct {
	client    *http.Client
	userAgent string
	retry     retry.Config
	limiter   ratelimit.RateLimiter
}

// NewDownloader creates a Downloader, filling unset options with defaults
func NewDownloader(opts Options) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Downloader{
		client:    client,
		userAgent: opts.UserAgent,
		retry:     opts.Retry,
		limiter:   opts.Limiter,
	}
}

// Download fetches one job. Existing non-empty files are kept.
func (d *Downloader) Download(ctx context.Context, job Job) *Result {
	start := time.Now()
	result := &Result{URL: job.URL}
	defer func() { result.Duration = time.Since(start) }()

	if u, err := url.Parse(job.URL); err != nil || u.Host == "" {
		result.Error = fmt.Errorf("invalid URL %q", job.URL)
		return result
	}

	name := job.Filename
	if name == "" {
		name = FilenameFor(job.URL)
	}
	result.FilePath = filepath.Join(job.Dir, sanitizeFilename(name))

	if info, err := os.Stat(result.FilePath); err == nil && info.Size() > 0 {
		result.Size = info.Size()
		result.Skipped = true
		return result
	}

	if err := os.MkdirAll(job.Dir, 0755); err != nil {
		result.Error = fmt.Errorf("failed to create output directory: %w", err)
		return result
	}

	result.Error = retry.WithRetry(ctx, d.retry, func() error {
		n, err := d.fetch(ctx, job.URL, result.FilePath)
		result.Size = n
		return err
	})
	if result.Error != nil {
		return result
	}

	log.Debug().
		Str("url", job.URL).
		Str("file", result.FilePath).
		Int64("bytes", result.Size).
		Msg("Download completed")
	return result
}

func (d *Downloader) fetch(ctx context.Context, fileURL, filePath string) (int64, error) {
	if err := d.limiter.Wait(ctx, fileURL); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, retry.NewHTTPError(resp.StatusCode, resp.Status, "")
	}

	// partial downloads never appear under the final name
	tmp := filePath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return n, nil
}

// FilenameFor derives a file name from the last path segment of fileURL.
// A query string is folded into a short hash so variants do not collide.
func FilenameFor(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return sanitizeFilename(fileURL)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = ""
	}
	if u.RawQuery != "" {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + shortHash(u.RawQuery) + ext
	}
	if name == "" {
		name = shortHash(fileURL)
	}
	return name
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
	"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeFilename keeps input inside its directory
func sanitizeFilename(input string) string {
	input = unsafeChars.Replace(input)
	input = strings.Trim(strings.TrimSpace(input), ".")
	if input == "" {
		input = "file"
	}
	if len(input) > 200 {
		input = input[:200]
	}
	return input
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
