// Package opener opens tool URLs in the desktop's default browser.
package opener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/browser"
)

//go:generate mockgen -destination=mocks/mock_opener.go -package=mocks github.com/mattjoyce/toolhub/internal/opener Opener

// Opener opens a URL for the user.
type Opener interface {
	Open(ctx context.Context, rawURL string) error
}

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid url")

var browserOutput sync.Once

// Browser opens URLs with the platform handler (xdg-open, open, or
// rundll32 url.dll).
type Browser struct {
	open func(string) error
}

// NewBrowser returns an Opener backed by the system browser.
func NewBrowser() *Browser {
	browserOutput.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
	return &Browser{open: browser.OpenURL}
}

func (b *Browser) Open(ctx context.Context, rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.open(rawURL); err != nil {
		return fmt.Errorf("open %s: %w", rawURL, err)
	}
	return nil
}

// Validate reports whether rawURL is an absolute http or https URL.
func Validate(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Logging only records the URL; used on headless hosts where
// supervisor.open_browser is false.
type Logging struct {
	Logger *slog.Logger
}

func (l Logging) Open(_ context.Context, rawURL string) error {
	if err := Validate(rawURL); err != nil {
		return err
	}
	if l.Logger != nil {
		l.Logger.Info("browser disabled; not opening url", "url", rawURL)
	}
	return nil
}
