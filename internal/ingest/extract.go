// Package ingest - extract.go turns text-path files into plain text.
//
// DESIGN: Extraction never panics and never aborts a request. It returns
// (text, nil) or an *ExtractionError whose Kind says why the file produced
// nothing; the router skips the file either way.
package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionErrorKind classifies an extraction failure.
type ExtractionErrorKind string

const (
	ExtractUnsupported ExtractionErrorKind = "unsupported"
	ExtractCorrupt     ExtractionErrorKind = "corrupt"
	ExtractEmpty       ExtractionErrorKind = "empty"
)

// ExtractionError reports why a file yielded no text.
type ExtractionError struct {
	Kind ExtractionErrorKind
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.File, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.File, e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractText returns the plain text of f.
func ExtractText(f UploadedFile) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ExtractionError{Kind: ExtractCorrupt, File: f.Name, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	var perr error
	switch {
	case f.Ext == ".pdf":
		text, perr = extractPDF(f.Data)
	case f.Ext == ".docx":
		text, perr = extractDOCX(f.Data)
	case f.Ext == ".pptx":
		text, perr = extractPPTX(f.Data)
	case f.Ext == ".rtf":
		text = stripRTF(string(f.Data))
	case f.Ext == ".txt", f.Ext == ".md", strings.HasPrefix(f.MIME, "text/"):
		text = strings.ToValidUTF8(string(f.Data), "�")
	default:
		return "", &ExtractionError{Kind: ExtractUnsupported, File: f.Name, Err: fmt.Errorf("no extractor for %q (%s)", f.Ext, f.MIME)}
	}

	if perr != nil {
		return "", &ExtractionError{Kind: ExtractCorrupt, File: f.Name, Err: perr}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ExtractionError{Kind: ExtractEmpty, File: f.Name}
	}
	return text, nil
}

// extractPDF returns "[page N]" blocks for every page.
func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, fmt.Sprintf("[page %d]\n%s", i, txt))
	}
	return strings.Join(parts, "\n\n"), nil
}
