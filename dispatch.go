package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"
)

// Dispatcher routes each entry to the extractor for its kind and turns every
// failure, panics included, into an Error outcome.
type Dispatcher struct {
	text        *TextExtractor
	html        *HTMLExtractor // nil unless HTML conversion is enabled
	document    Extractor
	spreadsheet Extractor
	langs       *LanguageTable
	log         *zap.Logger

	readFile func(string) ([]byte, error)
}

func NewDispatcher(cfg Config, langs *LanguageTable, log *zap.Logger) (*Dispatcher, error) {
	text, err := NewTextExtractor(cfg.Encodings)
	if err != nil {
		return nil, &ConfigError{Field: "encodings", Message: err.Error()}
	}
	d := &Dispatcher{
		text:        text,
		document:    DocumentExtractor{},
		spreadsheet: SpreadsheetExtractor{MaxRows: cfg.MaxSpreadsheetRows},
		langs:       langs,
		log:         orNop(log),
		readFile:    os.ReadFile,
	}
	if cfg.HTMLToMarkdown {
		d.html = NewHTMLExtractor(text)
	}
	return d, nil
}

// Dispatch produces the single result for entry. It never panics.
func (d *Dispatcher) Dispatch(entry FileEntry) ExtractionResult {
	res := ExtractionResult{Entry: entry, Language: d.langs.Lookup(entry.Path)}

	// Outcomes decided from metadata alone. These never open the file.
	switch {
	case entry.Skip != SkipNone:
		res.Outcome = PlaceholderOutcome(fmt.Sprintf("[SKIPPED: %s]", entry.Skip))
		return res
	case entry.Kind == KindImage:
		res.Outcome = PlaceholderOutcome(fmt.Sprintf("[IMAGE: %s — %s]", entry.Name(), humanSize(entry.Size)))
		return res
	case entry.Kind == KindBinary:
		res.Outcome = PlaceholderOutcome("[BINARY FILE]")
		return res
	}

	start := time.Now()
	data, err := d.readFile(entry.AbsPath)
	if err != nil {
		kind := ErrReadFailure
		if errors.Is(err, fs.ErrPermission) {
			kind = ErrPermissionDenied
		}
		res.Outcome = ErrorOutcome(kind, err.Error())
		return res
	}

	if entry.Kind == KindText && looksBinary(data) {
		res.Outcome = PlaceholderOutcome("[BINARY FILE]")
		return res
	}

	out, err := d.safeExtract(d.extractorFor(entry), entry, data)
	if err != nil {
		kind := ErrExtractionFailure
		if errors.Is(err, errDecode) {
			kind = ErrDecodeFailure
		}
		res.Outcome = ErrorOutcome(kind, err.Error())
		d.log.Debug("Extraction failed",
			zap.String("path", entry.Path),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err))
		return res
	}

	res.Outcome = Outcome{
		Type:         OutcomeContent,
		Text:         out.Text,
		Truncated:    out.Truncated,
		OmittedUnits: out.OmittedUnits,
		Unit:         out.Unit,
	}
	d.log.Debug("Extracted",
		zap.String("path", entry.Path),
		zap.String("kind", string(entry.Kind)),
		zap.Duration("elapsed", time.Since(start)))
	return res
}

// extractorFor is the pure classification from entry kind to variant.
func (d *Dispatcher) extractorFor(entry FileEntry) Extractor {
	switch entry.Kind {
	case KindDocument:
		return d.document
	case KindSpreadsheet:
		return d.spreadsheet
	}
	if d.html != nil && htmlExtensions[entry.Ext] {
		return d.html
	}
	return d.text
}

// safeExtract is the boundary that keeps a misbehaving parser from taking
// down its worker.
func (d *Dispatcher) safeExtract(ex Extractor, entry FileEntry, data []byte) (out Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Extraction{}
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.Extract(entry, data)
}

// humanSize formats a byte count with one decimal, e.g. "12.3 KB".
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
