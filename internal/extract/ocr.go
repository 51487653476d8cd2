package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// CommandOCR rasterizes PDF pages and runs an OCR binary over each page.
// It shells out to pdftoppm and tesseract (or compatible tools); the
// binaries are configurable so deployments can point at their own builds.
type CommandOCR struct {
	RasterCommand string
	OCRCommand    string
	Language      string
}

// NewCommandOCR builds a CommandOCR with the given binaries, defaulting to
// pdftoppm and tesseract.
func NewCommandOCR(rasterCmd, ocrCmd string) *CommandOCR {
	if rasterCmd == "" {
		rasterCmd = "pdftoppm"
	}
	if ocrCmd == "" {
		ocrCmd = "tesseract"
	}
	return &CommandOCR{RasterCommand: rasterCmd, OCRCommand: ocrCmd, Language: "eng"}
}

// RecognizePages converts every page to an image and OCRs it, returning
// one string per page in page order.
func (c *CommandOCR) RecognizePages(ctx context.Context, pdfData []byte) ([]string, error) {
	dir, err := os.MkdirTemp("", "ocr-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return nil, err
	}

	raster := exec.CommandContext(ctx, c.RasterCommand, "-png", "-r", "300", pdfPath, filepath.Join(dir, "page"))
	if out, err := raster.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("rasterize pdf: %v: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		images, _ = filepath.Glob(filepath.Join(dir, "page*.png"))
	}
	sort.Strings(images)

	pages := make([]string, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var stdout bytes.Buffer
		ocr := exec.CommandContext(ctx, c.OCRCommand, img, "stdout", "-l", c.Language)
		ocr.Stdout = &stdout
		if err := ocr.Run(); err != nil {
			return nil, fmt.Errorf("ocr page %s: %v", filepath.Base(img), err)
		}
		pages = append(pages, strings.TrimSpace(stdout.String()))
	}
	return pages, nil
}
