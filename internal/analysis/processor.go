package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"legaldocs-backend/internal/cache"
	"legaldocs-backend/internal/documents"
	"legaldocs-backend/internal/extract"
	"legaldocs-backend/internal/inference"
	"legaldocs-backend/internal/shared/telemetry"
	"legaldocs-backend/internal/shared/util"
)

// Processor runs the document analysis pipeline: extract, hash, fan out
// one inference call per analysis kind, merge, persist. Extracted text and
// finished results are cached; status transitions are persisted before any
// call returns.
type Processor struct {
	Docs      *documents.Service
	Extractor *extract.Extractor
	Inference inference.Caller
	Cache     *cache.Cache

	// ChunkSize caps the character length of text sent in a single call.
	// Longer documents are split at paragraph boundaries, summarized per
	// chunk, and synthesized into one condensed text that every analysis
	// kind then runs over. Zero disables chunking.
	ChunkSize int
}

// Process analyzes the stored document and persists the merged result.
// The document ends in status processed or error, never processing.
func (p *Processor) Process(ctx context.Context, documentID string) (Result, error) {
	doc, err := p.Docs.Repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Re-analysis drops whatever the previous run cached for this
	// document before fresh results are produced.
	if doc.Status == documents.StatusProcessed || doc.Status == documents.StatusError {
		p.Cache.InvalidateSubject(ctx, doc.ID)
	}

	if err := p.setStatus(ctx, doc.ID, documents.StatusProcessing, ""); err != nil {
		return nil, err
	}

	res, err := p.process(ctx, doc)
	if err != nil {
		if stErr := p.setStatus(ctx, doc.ID, documents.StatusError, err.Error()); stErr != nil {
			telemetry.Error("failed to record error status", map[string]any{
				"document_id": doc.ID,
				"error":       stErr.Error(),
			})
		}
		return nil, err
	}
	return res, nil
}

func (p *Processor) process(ctx context.Context, doc documents.Document) (Result, error) {
	data, err := p.readBytes(ctx, doc)
	if err != nil {
		return nil, err
	}

	hash, err := util.HashReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}
	if err := p.Docs.Repo.SetFileHash(ctx, doc.ID, hash); err != nil {
		return nil, err
	}

	text, err := p.extractText(ctx, doc, data)
	if err != nil {
		return nil, err
	}

	res, err := p.analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode analysis result: %w", err)
	}
	if err := p.Docs.Repo.SetAnalysisResults(ctx, doc.ID, payload); err != nil {
		return nil, err
	}
	p.Cache.Set(ctx, cache.CategoryAnalysis, payload, doc.ID)

	if err := p.setStatus(ctx, doc.ID, documents.StatusProcessed, ""); err != nil {
		return nil, err
	}
	return res, nil
}

// Compare extracts both documents and issues a single labeled comparison
// call. Identical documents compare like any other pair.
func (p *Processor) Compare(ctx context.Context, firstID, secondID string) (string, error) {
	if cached, ok := p.Cache.Get(ctx, cache.CategoryComparison, firstID, secondID); ok {
		return string(cached), nil
	}

	firstText, err := p.textFor(ctx, firstID)
	if err != nil {
		return "", err
	}
	secondText, err := p.textFor(ctx, secondID)
	if err != nil {
		return "", err
	}

	userText := fmt.Sprintf("Document 1:\n%s\n\nDocument 2:\n%s", firstText, secondText)
	resp, err := p.Inference.Call(ctx, inference.Request{
		SystemInstruction: inference.ComparisonInstruction,
		UserText:          userText,
		Temperature:       inference.DefaultTemperature,
		MaxTokens:         inference.DefaultMaxTokens,
	})
	if err != nil {
		return "", err
	}

	p.Cache.Set(ctx, cache.CategoryComparison, []byte(resp.Text), firstID, secondID)
	return resp.Text, nil
}

// Status reads the most recent pipeline status for a document from the
// cache, falling back to the persisted record.
func (p *Processor) Status(ctx context.Context, documentID string) (StatusUpdate, error) {
	if payload, ok := p.Cache.Get(ctx, cache.CategoryStatus, documentID); ok {
		var update StatusUpdate
		if err := json.Unmarshal(payload, &update); err == nil {
			return update, nil
		}
	}

	doc, err := p.Docs.Repo.GetByID(ctx, documentID)
	if err != nil {
		return StatusUpdate{}, err
	}
	return StatusUpdate{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
		Error:      doc.Metadata[documents.MetaError],
	}, nil
}

func (p *Processor) setStatus(ctx context.Context, documentID string, status documents.Status, errDetail string) error {
	if err := p.Docs.Repo.UpdateStatus(ctx, documentID, status, errDetail); err != nil {
		return err
	}
	payload, err := json.Marshal(StatusUpdate{DocumentID: documentID, Status: string(status), Error: errDetail})
	if err != nil {
		return err
	}
	p.Cache.Set(ctx, cache.CategoryStatus, payload, documentID)
	return nil
}

func (p *Processor) readBytes(ctx context.Context, doc documents.Document) ([]byte, error) {
	rc, err := p.Docs.Open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", doc.ID, err)
	}
	return data, nil
}

// extractText returns the document text, serving repeat extractions of the
// same document from the cache.
func (p *Processor) extractText(ctx context.Context, doc documents.Document, data []byte) (string, error) {
	if cached, ok := p.Cache.Get(ctx, cache.CategoryDocument, doc.ID); ok {
		return string(cached), nil
	}

	text, err := p.Extractor.Extract(ctx, data, doc.FileType)
	if err != nil {
		return "", err
	}
	p.Cache.Set(ctx, cache.CategoryDocument, []byte(text), doc.ID)
	return text, nil
}

func (p *Processor) textFor(ctx context.Context, documentID string) (string, error) {
	doc, err := p.Docs.Repo.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	data, err := p.readBytes(ctx, doc)
	if err != nil {
		return "", err
	}
	return p.extractText(ctx, doc, data)
}

// analyze fans out one call per analysis kind. Oversized text is condensed
// once up front so every kind works from the same input. Any failure
// cancels the remaining calls and nothing partial is returned.
func (p *Processor) analyze(ctx context.Context, text string) (Result, error) {
	if p.ChunkSize > 0 && len(text) > p.ChunkSize {
		condensed, err := p.condense(ctx, text)
		if err != nil {
			return nil, err
		}
		text = condensed
	}

	g, ctx := errgroup.WithContext(ctx)
	outputs := make([]KindResult, len(inference.Kinds))

	for i, kind := range inference.Kinds {
		g.Go(func() error {
			resp, err := p.call(ctx, inference.InstructionFor(kind), text)
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			outputs[i] = KindResult{Text: resp.Text, Model: resp.Model, Usage: resp.Usage}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make(Result, len(inference.Kinds))
	for i, kind := range inference.Kinds {
		res[kind] = outputs[i]
	}
	return res, nil
}

// condense shrinks oversized text by summarizing each paragraph-aligned
// chunk, then synthesizing the per-chunk summaries with a single call.
func (p *Processor) condense(ctx context.Context, text string) (string, error) {
	chunks := splitChunks(text, p.ChunkSize)
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		resp, err := p.call(ctx, inference.InstructionFor(inference.KindSummary), chunk)
		if err != nil {
			return "", err
		}
		parts = append(parts, resp.Text)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	resp, err := p.call(ctx, inference.SynthesisInstruction, strings.Join(parts, "\n\n"))
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (p *Processor) call(ctx context.Context, instruction, text string) (inference.Response, error) {
	return p.Inference.Call(ctx, inference.Request{
		SystemInstruction: instruction,
		UserText:          text,
		Temperature:       inference.DefaultTemperature,
		MaxTokens:         inference.DefaultMaxTokens,
	})
}
