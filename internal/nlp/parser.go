// Package nlp turns short free-text notes into expense drafts.
//
// The extraction is a keyword and regex heuristic. Each rule runs on the
// original text independently of the others.
package nlp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"tracker/internal/core"
)

// DefaultDelay simulates the latency of a remote parsing backend.
const DefaultDelay = time.Second

// maxDaysAgo bounds "N days ago" so the resulting date stays representable.
const maxDaysAgo = 100_000_000

// ErrParseFailed is the single error returned for any unusable input.
var ErrParseFailed = errors.New("failed to parse text")

var (
	dollarAmountRe = regexp.MustCompile(`\$\s*([\d.]+)`)
	bareAmountRe   = regexp.MustCompile(`\b([\d.]+)\b`)
	daysAgoRe      = regexp.MustCompile(`(\d+)\s+days ago`)

	stripDollarRe    = regexp.MustCompile(`(?i)\$\s*[\d.]+`)
	stripCurrencyRe  = regexp.MustCompile(`(?i)\b[\d.]+\s*(dollars|bucks)\b`)
	stripYesterdayRe = regexp.MustCompile(`(?i)\byesterday\b`)
	stripTodayRe     = regexp.MustCompile(`(?i)\btoday\b`)
	stripDaysAgoRe   = regexp.MustCompile(`(?i)\b\d+\s+days\s+ago\b`)
	stripConnectRe   = regexp.MustCompile(`(?i)\b(?:spent|on|bought|for)\b`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// keywordSets are checked in order; the first set with a hit wins.
var keywordSets = []struct {
	words      []string
	categoryID int
}{
	{[]string{"food", "coffee", "lunch"}, 1},
	{[]string{"uber", "gas", "transit"}, 2},
	{[]string{"movie", "game"}, 3},
}

// Parser extracts drafts from text after a simulated delay.
type Parser struct {
	delay time.Duration
	now   func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source used for relative dates.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// NewParser creates a parser. A negative delay is treated as zero.
func NewParser(delay time.Duration, opts ...Option) *Parser {
	p := &Parser{
		delay: max(delay, 0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseValue accepts an arbitrary decoded value. Anything that is not a
// string fails with ErrParseFailed after the usual delay.
func (p *Parser) ParseValue(ctx context.Context, v any) (core.Draft, error) {
	if err := p.wait(ctx); err != nil {
		return core.Draft{}, err
	}
	text, ok := v.(string)
	if !ok {
		return core.Draft{}, ErrParseFailed
	}
	return p.extract(text)
}

// Parse waits for the configured delay, then extracts a draft from text.
// Cancelling ctx abandons the wait and returns ctx.Err().
func (p *Parser) Parse(ctx context.Context, text string) (core.Draft, error) {
	if err := p.wait(ctx); err != nil {
		return core.Draft{}, err
	}
	return p.extract(text)
}

func (p *Parser) wait(ctx context.Context) error {
	if p.delay == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Parser) extract(text string) (draft core.Draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			draft, err = core.Draft{}, fmt.Errorf("%w: %v", ErrParseFailed, r)
		}
	}()

	lower := strings.ToLower(text)

	amount, bare := extractAmount(text)
	date, err := p.extractDate(lower)
	if err != nil {
		return core.Draft{}, err
	}

	return core.Draft{
		Amount:     amount,
		Title:      extractTitle(text, amount, bare),
		Date:       core.FormatISO(date),
		CategoryID: extractCategory(lower),
	}, nil
}

// extractAmount prefers a $-prefixed token and falls back to the first bare
// number. bare reports whether the fallback was used.
func extractAmount(text string) (amount string, bare bool) {
	if m := dollarAmountRe.FindStringSubmatch(text); m != nil {
		return m[1], false
	}
	if m := bareAmountRe.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

func (p *Parser) extractDate(lower string) (time.Time, error) {
	now := p.now()
	if strings.Contains(lower, "yesterday") {
		return now.AddDate(0, 0, -1), nil
	}
	if !strings.Contains(lower, "days ago") {
		return now, nil
	}
	m := daysAgoRe.FindStringSubmatch(lower)
	if m == nil {
		return now, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxDaysAgo {
		return time.Time{}, ErrParseFailed
	}
	return now.AddDate(0, 0, -n), nil
}

func extractCategory(lower string) *int {
	for _, set := range keywordSets {
		for _, w := range set.words {
			if strings.Contains(lower, w) {
				return core.IntPtr(set.categoryID)
			}
		}
	}
	return nil
}

func extractTitle(text, amount string, bare bool) string {
	title := stripDollarRe.ReplaceAllString(text, "")
	title = stripCurrencyRe.ReplaceAllString(title, "")
	title = stripYesterdayRe.ReplaceAllString(title, "")
	title = stripTodayRe.ReplaceAllString(title, "")
	title = stripDaysAgoRe.ReplaceAllString(title, "")
	title = stripConnectRe.ReplaceAllString(title, "")
	if bare && amount != "" {
		title = removeFirstToken(title, amount)
	}
	title = strings.TrimSpace(whitespaceRe.ReplaceAllString(title, " "))

	if title == "" {
		title = strings.TrimSpace(text)
	}
	return capitalize(title)
}

func removeFirstToken(s, token string) string {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(token) + `\b`)
	if err != nil {
		return s
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
