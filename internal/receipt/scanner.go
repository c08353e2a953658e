// Package receipt extracts expense drafts from receipt images.
package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"tracker/internal/core"
)

// DefaultDelay simulates the latency of a remote OCR backend.
const DefaultDelay = 1500 * time.Millisecond

// Every accepted image yields this extraction result.
const scannedTitle = "Office Supplies (Scanned)"

var scannedAmount = core.Money{Cents: 4250}

// Source is where the receipt image came from.
type Source string

const (
	SourceCamera  Source = "camera"
	SourceGallery Source = "gallery"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrCanceled         = errors.New("capture canceled")
	ErrUnknownSource    = errors.New("unknown receipt source")
	ErrInvalidImage     = errors.New("invalid receipt image")
)

// ParseSource normalises a user-supplied source name.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceCamera, SourceGallery:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// PermissionError reports a source the scanner is not allowed to read from.
type PermissionError struct {
	Source Source
}

func (e *PermissionError) Error() string {
	if e.Source == SourceGallery {
		return "Gallery permission is required to choose receipts."
	}
	return "Camera permission is required to scan receipts."
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// Scanner turns an image into a fixed draft after a simulated delay.
type Scanner struct {
	delay   time.Duration
	now     func() time.Time
	allowed map[Source]bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock overrides the time source stamped on drafts.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithSources restricts the sources the scanner accepts. All sources are
// allowed by default.
func WithSources(sources ...Source) Option {
	return func(s *Scanner) {
		s.allowed = make(map[Source]bool, len(sources))
		for _, src := range sources {
			s.allowed[src] = true
		}
	}
}

func NewScanner(delay time.Duration, opts ...Option) *Scanner {
	s := &Scanner{
		delay:   max(delay, 0),
		now:     time.Now,
		allowed: map[Source]bool{SourceCamera: true, SourceGallery: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan validates the image and returns the extracted draft. An empty image
// means the user backed out of the picker and yields ErrCanceled.
func (s *Scanner) Scan(ctx context.Context, src Source, img []byte) (core.Draft, error) {
	if src != SourceCamera && src != SourceGallery {
		return core.Draft{}, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	if !s.allowed[src] {
		return core.Draft{}, &PermissionError{Source: src}
	}
	if len(img) == 0 {
		return core.Draft{}, ErrCanceled
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return core.Draft{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return core.Draft{}, ctx.Err()
		case <-timer.C:
		}
	}

	// The draft carries no category; the user picks one on the form.
	return core.Draft{
		Amount: scannedAmount.Decimal(),
		Title:  scannedTitle,
		Date:   core.FormatISO(s.now()),
	}, nil
}
