// Package extraction turns receipt and statement images into expense
// fields through a generative AI model. Responses are validated before
// use and failures are classified as core.ExtractionError.
package extraction

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"financeiro/internal/cache"
	"financeiro/internal/core"
	"financeiro/internal/log"
)

// File is an uploaded image or document.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ErrEmptyFile is returned for uploads without content.
var ErrEmptyFile = errors.New("file is empty")

const (
	kindReceipt   = "receipt"
	kindStatement = "statement"
)

// Adapter wraps a Generator with prompts, validation and a response cache.
// It never touches the ledger.
type Adapter struct {
	gen    Generator
	cache  *cache.LRUCache[string]
	logger *log.Logger
	now    func() time.Time
}

// NewAdapter builds an adapter. gen may be nil, in which case every call
// fails as unavailable. responses may be nil to disable caching.
func NewAdapter(gen Generator, responses *cache.LRUCache[string], logger *log.Logger) *Adapter {
	return &Adapter{
		gen:    gen,
		cache:  responses,
		logger: logger.WithComponent(log.ComponentExtraction),
		now:    time.Now,
	}
}

// ExtractReceipt reads a single expense from a receipt image.
func (a *Adapter) ExtractReceipt(ctx context.Context, file File, knownCategories []string) (core.ExpenseFields, error) {
	req := Request{File: file, Prompt: receiptPrompt(knownCategories)}
	text, key, err := a.generate(ctx, kindReceipt, req, knownCategories)
	if err != nil {
		return core.ExpenseFields{}, err
	}
	fields, err := ParseReceipt(text, a.now())
	if err != nil {
		a.logger.WarnContext(ctx, "Receipt response rejected", log.FieldError, err, log.FieldFileName, file.Name)
		return core.ExpenseFields{}, err
	}
	a.remember(key, text)
	return fields, nil
}

// ExtractStatement reads every expense line of a card statement. Items are
// owned by actingMember and carry no temp ids yet.
func (a *Adapter) ExtractStatement(ctx context.Context, file File, knownCategories []string, actingMember core.Member) ([]core.StagedTransaction, error) {
	req := Request{
		File:   file,
		Prompt: statementPrompt(knownCategories),
		Schema: statementSchema(knownCategories),
	}
	text, key, err := a.generate(ctx, kindStatement, req, knownCategories)
	if err != nil {
		return nil, err
	}
	items, err := ParseStatement(text, actingMember, a.now())
	if err != nil {
		a.logger.WarnContext(ctx, "Statement response rejected", log.FieldError, err, log.FieldFileName, file.Name)
		return nil, err
	}
	a.remember(key, text)
	a.logger.InfoContext(ctx, "Statement extracted", log.FieldCount, len(items), log.FieldFileName, file.Name)
	return items, nil
}

func (a *Adapter) generate(ctx context.Context, kind string, req Request, vocabulary []string) (string, string, error) {
	if len(req.File.Data) == 0 {
		return "", "", &core.ValidationError{Field: "file", Err: ErrEmptyFile}
	}
	if req.File.MIMEType == "" {
		req.File.MIMEType = http.DetectContentType(req.File.Data)
	}
	if a.gen == nil {
		return "", "", &core.ExtractionError{Kind: core.ExtractionUnavailable, Err: ErrMissingAPIKey}
	}

	key := cache.HashKey([]byte(kind), req.File.Data, []byte(strings.Join(vocabulary, "\x00")))
	if a.cache != nil {
		if text, ok := a.cache.Get(key); ok {
			a.logger.DebugContext(ctx, "Extraction served from cache", log.FieldExtractKind, kind)
			return text, key, nil
		}
	}

	start := a.now()
	text, err := a.gen.Generate(ctx, req)
	if err != nil {
		a.logger.ErrorContext(ctx, "Extraction call failed",
			log.FieldExtractKind, kind,
			log.FieldFileName, req.File.Name,
			log.FieldFileSize, len(req.File.Data),
			log.FieldError, err)
		return "", "", &core.ExtractionError{Kind: core.ExtractionUnavailable, Err: err}
	}
	a.logger.InfoContext(ctx, "Extraction call completed",
		log.FieldExtractKind, kind,
		log.FieldFileSize, len(req.File.Data),
		log.FieldDuration, a.now().Sub(start).Milliseconds())
	return text, key, nil
}

func (a *Adapter) remember(key, text string) {
	if a.cache != nil {
		a.cache.Set(key, text)
	}
}
