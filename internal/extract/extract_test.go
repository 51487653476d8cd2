package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
)

type fakeOCR struct {
	pages []string
	err   error
	calls int
}

func (f *fakeOCR) RecognizePages(ctx context.Context, pdfData []byte) ([]string, error) {
	f.calls++
	return f.pages, f.err
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		mime, name, want string
		wantErr          bool
	}{
		{"application/pdf", "a.pdf", TypePDF, false},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "a.docx", TypeDOCX, false},
		{"text/plain; charset=utf-8", "a.txt", TypeText, false},
		{"", "contract.PDF", TypePDF, false},
		{"application/octet-stream", "notes.txt", TypeText, false},
		{"image/png", "scan.png", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeType(tc.mime, tc.name)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedType) {
				t.Fatalf("NormalizeType(%q, %q): expected ErrUnsupportedType, got %v", tc.mime, tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeType(%q, %q): %v", tc.mime, tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeType(%q, %q) = %q, want %q", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestExtractPlainTextVerbatim(t *testing.T) {
	e := &Extractor{}
	text, err := e.Extract(context.Background(), []byte("hello\nworld"), TypeText)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "hello\nworld" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractDOCXJoinsParagraphs(t *testing.T) {
	data := buildDOCX(t, `<?xml version="1.0"?>
<document><body>
<p><r><t>First paragraph.</t></r></p>
<p><r><t>Second paragraph.</t></r></p>
</body></document>`)

	e := &Extractor{}
	text, err := e.Extract(context.Background(), data, TypeDOCX)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "First paragraph.\n\nSecond paragraph."
	if text != want {
		t.Fatalf("unexpected text: %q, want %q", text, want)
	}
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("word/other.xml"); err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	_ = zw.Close()

	e := &Extractor{}
	_, err := e.Extract(context.Background(), buf.Bytes(), TypeDOCX)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	ocr := &fakeOCR{pages: []string{"page one text", "page two text"}}
	e := &Extractor{OCR: ocr}

	// Bytes with no decodable text layer force the OCR path.
	text, err := e.Extract(context.Background(), []byte("%PDF-1.4 scanned"), TypePDF)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "page one text\npage two text" {
		t.Fatalf("unexpected text: %q", text)
	}
	if ocr.calls != 1 {
		t.Fatalf("expected 1 OCR call, got %d", ocr.calls)
	}
}

func TestExtractPDFWithoutOCRConfigured(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract(context.Background(), []byte("%PDF-1.4 scanned"), TypePDF)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractPDFOCRProducesNothing(t *testing.T) {
	e := &Extractor{OCR: &fakeOCR{pages: []string{"", "  "}}}
	_, err := e.Extract(context.Background(), []byte("%PDF-1.4 scanned"), TypePDF)
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	e := &Extractor{}
	_, err := e.Extract(context.Background(), []byte("x"), "png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}
