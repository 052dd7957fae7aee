// Package extract turns web pages and PDF documents submitted by the
// learner into plain study text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

const (
	// MinChars is the least extracted text worth a quiz.
	MinChars = 100

	// MaxChars caps the text handed to quiz generation.
	MaxChars = 15000

	// maxBody caps downloaded page and document sizes.
	maxBody = 20 << 20

	userAgent = "Mozilla/5.0 (compatible; studycoach/1.0)"
)

// ErrNoText is returned when a document yields no text.
var ErrNoText = errors.New("no extractable text")

var urlPattern = regexp.MustCompile(`https?://(?:[-\w.]|%[\da-fA-F]{2})+[^\s]*`)

// FindURL returns the first http(s) URL in text, or "".
func FindURL(text string) string {
	return urlPattern.FindString(text)
}

// Extractor fetches URLs and reads PDFs. It implements collab.Extractor.
type Extractor struct {
	client *http.Client
	logger *slog.Logger
}

// New creates an Extractor with the given request timeout.
func New(timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "extract"),
	}
}

// FromURL downloads url and extracts its text. PDFs are detected by
// content type or extension; everything else is parsed as HTML.
func (e *Extractor) FromURL(ctx context.Context, url string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", url, err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(url), ".pdf") {
		e.logger.Debug("url is a pdf", "url", url)
		text, err := e.FromPDF(body)
		return "", text, err
	}

	title, text, err = FromHTML(bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	if text == "" {
		return title, "", ErrNoText
	}
	return title, text, nil
}

// FromPDF extracts the plain text of every page.
func (e *Extractor) FromPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrNoText
	}
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text = cleanText(string(raw))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// cleanText trims every line, splits on runs of two or more spaces, and
// drops empty chunks.
func cleanText(s string) string {
	var chunks []string
	for _, line := range strings.Split(s, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, "\n")
}
