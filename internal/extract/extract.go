package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Supported document types.
const (
	TypePDF  = "pdf"
	TypeDOCX = "docx"
	TypeText = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// ErrUnsupportedType indicates a file type outside the allow-list.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrExtraction indicates text extraction failed for a supported type.
var ErrExtraction = errors.New("text extraction failed")

// PageOCR recognizes text from the pages of a scanned PDF. Implementations
// are expected to be slow; callers run them off the scheduling path.
type PageOCR interface {
	RecognizePages(ctx context.Context, pdfData []byte) ([]string, error)
}

// Extractor pulls plain text out of uploaded document bytes.
// PDF extraction tries the embedded text layer first and falls back to OCR
// only when that yields whitespace-only content.
type Extractor struct {
	OCR PageOCR
}

// NormalizeType maps a mime type or file name to one of the supported
// document types. It returns ErrUnsupportedType for anything else.
func NormalizeType(mimeType, fileName string) (string, error) {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF:
		return TypePDF, nil
	case mimeDOCX:
		return TypeDOCX, nil
	case mimeText:
		return TypeText, nil
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return TypePDF, nil
	case ".docx":
		return TypeDOCX, nil
	case ".txt":
		return TypeText, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, clean)
}

// Extract returns the plain text of a document.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch fileType {
	case TypeText:
		return string(data), nil
	case TypeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("%w: docx: %v", ErrExtraction, err)
		}
		return text, nil
	case TypePDF:
		return e.extractPDF(ctx, data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	text, err := pdfTextLayer(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	// Empty or missing text layer means a scanned document.
	if e.OCR == nil {
		if err != nil {
			return "", fmt.Errorf("%w: pdf: %v", ErrExtraction, err)
		}
		return "", fmt.Errorf("%w: pdf has no text layer and OCR is not configured", ErrExtraction)
	}

	pages, ocrErr := e.OCR.RecognizePages(ctx, data)
	if ocrErr != nil {
		return "", fmt.Errorf("%w: ocr: %v", ErrExtraction, ocrErr)
	}
	joined := strings.Join(pages, "\n")
	if strings.TrimSpace(joined) == "" {
		return "", fmt.Errorf("%w: ocr produced no text", ErrExtraction)
	}
	return joined, nil
}

func pdfTextLayer(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return joinParagraphs(string(raw)), nil
}

// joinParagraphs strips WordprocessingML markup. Paragraphs become blank
// line separated blocks so downstream chunking can split on them.
func joinParagraphs(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if buf.Len() > 0 {
					buf.WriteString("\n\n")
				}
			case "br":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
