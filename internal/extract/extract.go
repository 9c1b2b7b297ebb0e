// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupported is matched by *UnsupportedError.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNoText reports a readable document without any text.
	ErrNoText = errors.New("no text found in document")
	// ErrExtraction reports a document that could not be read.
	ErrExtraction = errors.New("failed to extract text")
)

// Kind identifies a supported document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "txt"
)

var contentTypes = map[Kind]string{
	KindPDF:  "application/pdf",
	KindDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	KindText: "text/plain; charset=utf-8",
}

// ContentType returns the MIME type of the format.
func (k Kind) ContentType() string {
	return contentTypes[k]
}

// UnsupportedError is returned for files whose extension is not accepted.
type UnsupportedError struct {
	Filename string
	Allowed  []Kind
}

func (e *UnsupportedError) Error() string {
	names := make([]string, 0, len(e.Allowed))
	for _, kind := range e.Allowed {
		names = append(names, strings.ToUpper(string(kind)))
	}
	return fmt.Sprintf("Only %s files are supported", strings.Join(names, ", "))
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Options select the formats accepted besides PDF.
type Options struct {
	AllowDOCX bool `mapstructure:"allow-docx"`
	AllowText bool `mapstructure:"allow-text"`
}

// Document is the extracted text of an upload.
type Document struct {
	Kind Kind
	Text string
}

// Extractor is safe for concurrent use.
type Extractor struct {
	allowed []Kind
}

func New(opts Options) *Extractor {
	allowed := []Kind{KindPDF}
	if opts.AllowDOCX {
		allowed = append(allowed, KindDOCX)
	}
	if opts.AllowText {
		allowed = append(allowed, KindText)
	}
	return &Extractor{allowed: allowed}
}

// Allowed lists the accepted formats, PDF first.
func (e *Extractor) Allowed() []Kind {
	return append([]Kind(nil), e.allowed...)
}

// Detect resolves the document format from the filename extension, ignoring case.
func (e *Extractor) Detect(filename string) (Kind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(strings.TrimSpace(filename))), ".")
	for _, kind := range e.allowed {
		if ext == string(kind) {
			return kind, nil
		}
	}
	return "", &UnsupportedError{Filename: filename, Allowed: e.Allowed()}
}

// Extract returns the trimmed text of data. Whitespace-only output is ErrNoText.
func (e *Extractor) Extract(filename string, data []byte) (Document, error) {
	kind, err := e.Detect(filename)
	if err != nil {
		return Document{}, err
	}

	var text string
	switch kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindDOCX:
		text, err = docxText(data)
	case KindText:
		text = strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w from %s: %w", ErrExtraction, strings.ToUpper(string(kind)), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, ErrNoText
	}

	return Document{Kind: kind, Text: text}, nil
}
