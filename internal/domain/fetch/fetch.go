package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// shareLinkPattern recognises the share link shapes users paste into the chat.
var shareLinkPattern = regexp.MustCompile(`drive\.google\.com/(file/d/|open\?id=|/d/)`)

// fileIDPatterns extract the file id from the supported link shapes, tried
// in order.
var fileIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)/`),
}

const defaultDownloadBase = "https://drive.google.com/uc?export=download&id="

// IsShareLink reports whether the text looks like a supported share link.
func IsShareLink(link string) bool {
	return shareLinkPattern.MatchString(link)
}

// ExtractFileID pulls the file id out of a share link. Empty result means
// the link shape is not supported.
func ExtractFileID(link string) string {
	for _, p := range fileIDPatterns {
		if m := p.FindStringSubmatch(link); m != nil {
			return m[1]
		}
	}
	return ""
}

// Fetcher downloads referenced recordings into the scratch directory.
type Fetcher struct {
	client       *http.Client
	scratchDir   string
	downloadBase string
}

// Option tweaks fetcher construction.
type Option func(*Fetcher)

// WithClient replaces the HTTP client, used by tests.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithDownloadBase points the fetcher at a different download endpoint.
func WithDownloadBase(base string) Option {
	return func(f *Fetcher) { f.downloadBase = base }
}

// NewFetcher builds a fetcher writing into scratchDir.
func NewFetcher(scratchDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{Timeout: 30 * time.Minute},
		scratchDir:   scratchDir,
		downloadBase: defaultDownloadBase,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves the share link and downloads the file to a unique temp
// path. On failure no partial file is left behind.
func (f *Fetcher) Fetch(ctx context.Context, link string) (string, error) {
	fileID := ExtractFileID(link)
	if fileID == "" {
		return "", errors.New(errors.KindStage, "fetch.extract", "could not extract file id from link")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.downloadBase+fileID, nil)
	if err != nil {
		return "", errors.Wrap(errors.KindStage, "fetch.request", "failed to build download request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.KindStage, "fetch.download", "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.KindStage, "fetch.download",
			fmt.Sprintf("unexpected download status: %d", resp.StatusCode))
	}

	path := filepath.Join(f.scratchDir, uuid.NewString()+"_drive_download")
	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.KindStage, "fetch.tempfile", "failed to create temp file", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", errors.Wrap(errors.KindStage, "fetch.download", "download interrupted", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(errors.KindStage, "fetch.tempfile", "failed to finalize temp file", err)
	}
	return path, nil
}
