package cvtext

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"go.uber.org/zap"
)

// ErrUnsupported is returned for files that are neither PDF nor plain text.
var ErrUnsupported = errors.New("unsupported cv format")

var pdfMagic = []byte("%PDF-")

// SetLicense registers a metered unidoc license key. An empty key is ignored.
func SetLicense(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("set unidoc license: %w", err)
	}
	return nil
}

// Extractor turns an uploaded CV into plain text for analysis.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract returns the text of the CV in data. PDFs are detected by content
// or by the .pdf extension of name; .txt and .md files pass through.
func (e *Extractor) Extract(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case bytes.HasPrefix(data, pdfMagic) || ext == ".pdf":
		return e.extractPDF(data)
	case ext == ".txt" || ext == ".md" || ext == "":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not utf-8 text", ErrUnsupported, name)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", errors.New("cv is empty")
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

func (e *Extractor) extractPDF(data []byte) (string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	pages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("get page count: %w", err)
	}
	if pages == 0 {
		return "", errors.New("pdf has no pages")
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		text, err := pageText(reader, i)
		if err != nil {
			e.logger.Warn("skipping pdf page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	result := strings.TrimSpace(b.String())
	if result == "" {
		return "", errors.New("no text could be extracted from the pdf")
	}

	e.logger.Debug("cv text extracted", zap.Int("pages", pages), zap.Int("length", utf8.RuneCountInString(result)))
	return result, nil
}

func pageText(reader *model.PdfReader, n int) (string, error) {
	page, err := reader.GetPage(n)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}

	ex, err := extractor.New(page)
	if err != nil {
		return "", fmt.Errorf("create extractor: %w", err)
	}

	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
