package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrUnreadableDocument signals that the resume document could not be
// parsed at all. Individual pages without extractable text are not errors,
// they contribute an empty string.
var ErrUnreadableDocument = errors.New("resume document is unreadable")

// Extractor pulls plain text out of an uploaded resume document.
type Extractor interface {
	Extract(ctx context.Context, doc io.ReaderAt, size int64) (string, error)
}

// PDFExtractor extracts text from PDF resumes.
type PDFExtractor struct {
	logger *zap.Logger
}

func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{logger: logger}
}

// Extract reads every page of the PDF and concatenates the extractable
// text. Pages that fail text extraction contribute nothing.
func (e *PDFExtractor) Extract(ctx context.Context, doc io.ReaderAt, size int64) (text string, err error) {
	// The underlying parser panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(doc, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("skipping page without extractable text",
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}

		builder.WriteString(content)
	}

	return builder.String(), nil
}
