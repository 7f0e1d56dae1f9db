// Package document turns uploaded or downloaded documents into plain text
// that can be appended to a research query.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxChars bounds extracted text.
const DefaultMaxChars = 20000

// Sentinel errors for extraction.
var (
	// ErrUnsupported is returned for document types that cannot be read as text.
	ErrUnsupported = errors.New("document: unsupported type")
	// ErrUnreadable is returned when a document of a supported type cannot be parsed.
	ErrUnreadable = errors.New("document: unreadable")
)

var extraneousWhitespace = regexp.MustCompile(`\s+`)

// Kind is a supported document format.
type Kind string

// Supported kinds.
const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

// Extractor converts document bytes to normalized text.
type Extractor struct {
	maxChars int
}

// NewExtractor creates an Extractor. maxChars <= 0 uses DefaultMaxChars.
func NewExtractor(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// Detect picks the document kind from content sniffing, the declared content
// type and the file name, in that order.
func Detect(filename, contentType string, data []byte) (Kind, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return KindPDF, nil
	}
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case strings.Contains(ct, "application/pdf"), ext == ".pdf":
		return KindPDF, nil
	case strings.HasPrefix(ct, "text/"), ext == ".txt", ext == ".md", ext == ".markdown", ext == ".csv":
		return KindText, nil
	case ct == "" || strings.HasPrefix(ct, "application/octet-stream"):
		if utf8.Valid(data) {
			return KindText, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s", ErrUnsupported, filename, contentType)
}

// Extract returns the normalized text of the document, truncated to the
// configured number of characters.
func (e *Extractor) Extract(filename, contentType string, data []byte) (string, error) {
	kind, err := Detect(filename, contentType, data)
	if err != nil {
		return "", err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = pdfText(data)
		if err != nil {
			return "", err
		}
	case KindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnreadable)
		}
		text = string(data)
	}

	return Truncate(extraneousWhitespace.ReplaceAllString(strings.TrimSpace(text), " "), e.maxChars), nil
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract text: %w", ErrUnreadable, err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, content); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return b.String(), nil
}

// Truncate cuts s to at most maxChars runes.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}
