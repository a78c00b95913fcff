package ingestion

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/skillxpress/skillxpress/internal/logger"
	"github.com/skillxpress/skillxpress/internal/types"
)

// Kind is the detected format of a stored document.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindImage   Kind = "image"
	KindText    Kind = "text"
	KindUnknown Kind = "unknown"
)

// OCR recognizes text in images and scanned PDFs.
type OCR interface {
	ImageText(ctx context.Context, data []byte) (string, error)
	PDFText(ctx context.Context, data []byte) (string, error)
}

// Extractor converts document bytes to cleaned text within a time bound.
type Extractor struct {
	ocr     OCR
	timeout time.Duration
	log     *logger.Logger
}

// NewExtractor creates an Extractor. ocr may be nil, in which case images
// cannot be extracted and scanned PDFs yield an error.
func NewExtractor(ocr OCR, timeout time.Duration, log *logger.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{ocr: ocr, timeout: timeout, log: log.With("component", "extractor")}
}

// Extract returns the cleaned text of the document stored at path. Every
// failure, including a timeout, is an *types.ExtractionFailedError.
func (e *Extractor) Extract(ctx context.Context, path string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("parser panic: %v", r)}
			}
		}()
		text, err := e.extract(ctx, path, data)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", e.timeoutError(path, ctx.Err())
	case r := <-done:
		if r.err != nil {
			if ctx.Err() != nil {
				return "", e.timeoutError(path, ctx.Err())
			}
			return "", &types.ExtractionFailedError{Path: path, Cause: r.err}
		}
		return r.text, nil
	}
}

func (e *Extractor) timeoutError(path string, cause error) error {
	return &types.ExtractionFailedError{
		Path:  path,
		Cause: &types.UpstreamTimeoutError{Service: "text extraction", Timeout: e.timeout, Cause: cause},
	}
}

func (e *Extractor) extract(ctx context.Context, path string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("document is empty")
	}

	kind := DetectKind(path, data)
	switch kind {
	case KindText:
		return CleanText(string(data)), nil
	case KindDOCX:
		text, err := docxText(data)
		if err != nil {
			return "", err
		}
		return CleanText(text), nil
	case KindPDF:
		text, err := pdfText(data)
		if err == nil && strings.TrimSpace(text) != "" {
			return CleanText(text), nil
		}
		if e.ocr == nil {
			if err != nil {
				return "", err
			}
			return "", errors.New("pdf has no text layer and OCR is disabled")
		}
		e.log.Debug("pdf has no usable text layer, using OCR", "path", path)
		text, err = e.ocr.PDFText(ctx, data)
		if err != nil {
			return "", fmt.Errorf("ocr: %w", err)
		}
		return CleanText(text), nil
	case KindImage:
		if e.ocr == nil {
			return "", errors.New("image documents require OCR, which is disabled")
		}
		text, err := e.ocr.ImageText(ctx, data)
		if err != nil {
			return "", fmt.Errorf("ocr: %w", err)
		}
		return CleanText(text), nil
	default:
		return "", fmt.Errorf("unsupported document format for %s", filepath.Base(path))
	}
}

// DetectKind classifies a document by extension, then by content sniffing.
func DetectKind(path string, data []byte) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return KindImage
	case ".txt", ".md":
		return KindText
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return KindDOCX
	}
	ct := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "text/plain"):
		return KindText
	}
	return KindUnknown
}

func pdfText(data []byte) (text string, err error) {
	defer func() {
		// The parser panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()
	return wordXMLText(doc.Editable().GetContent())
}

// wordXMLText flattens WordprocessingML into text, one line per paragraph.
func wordXMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte(' ')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
