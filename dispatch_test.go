package main

import (
	"fmt"
	"io/fs"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type panicExtractor struct{}

func (panicExtractor) Extract(FileEntry, []byte) (Extraction, error) {
	panic("boom")
}

func newTestDispatcher(t *testing.T, cfg Config, read func(string) ([]byte, error)) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cfg, testLanguages(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	if read != nil {
		d.readFile = read
	}
	return d
}

func TestDispatchPlaceholdersNeverRead(t *testing.T) {
	var reads atomic.Int32
	d := newTestDispatcher(t, DefaultConfig(), func(string) ([]byte, error) {
		reads.Add(1)
		return nil, fmt.Errorf("should not be called")
	})

	tests := []struct {
		entry FileEntry
		want  string
	}{
		{FileEntry{Path: "big.log", Kind: KindText, Size: 1 << 30, Skip: SkipSizeLimit}, "[SKIPPED: size limit]"},
		{FileEntry{Path: "img/logo.png", Kind: KindImage, Size: 2048}, "[IMAGE: logo.png — 2.0 KB]"},
		{FileEntry{Path: "app.exe", Kind: KindBinary, Size: 10}, "[BINARY FILE]"},
	}
	for _, tt := range tests {
		res := d.Dispatch(tt.entry)
		assert.Equal(t, OutcomePlaceholder, res.Outcome.Type, tt.entry.Path)
		assert.Equal(t, tt.want, res.Outcome.Body())
	}
	assert.Zero(t, reads.Load())
}

func TestDispatchText(t *testing.T) {
	d := newTestDispatcher(t, DefaultConfig(), func(p string) ([]byte, error) {
		return []byte("package main\n"), nil
	})
	res := d.Dispatch(FileEntry{Path: "cmd/main.go", AbsPath: "/x/cmd/main.go", Kind: KindText, Ext: "go"})
	assert.Equal(t, OutcomeContent, res.Outcome.Type)
	assert.Equal(t, "package main\n", res.Outcome.Text)
	assert.Equal(t, "Go", res.Language)
}

func TestDispatchReadErrors(t *testing.T) {
	d := newTestDispatcher(t, DefaultConfig(), func(p string) ([]byte, error) {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrPermission}
	})
	res := d.Dispatch(FileEntry{Path: "secret.txt", AbsPath: "/x/secret.txt", Kind: KindText})
	assert.Equal(t, OutcomeError, res.Outcome.Type)
	assert.Equal(t, ErrPermissionDenied, res.Outcome.ErrKind)
	assert.Contains(t, res.Outcome.Marker(), "[ERROR READING FILE: permission_denied: ")

	d = newTestDispatcher(t, DefaultConfig(), func(p string) ([]byte, error) {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	})
	res = d.Dispatch(FileEntry{Path: "gone.txt", Kind: KindText})
	assert.Equal(t, ErrReadFailure, res.Outcome.ErrKind)
}

func TestDispatchDecodeFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encodings = []string{"utf-8"}
	d := newTestDispatcher(t, cfg, func(string) ([]byte, error) {
		return []byte("caf\xe9 au lait"), nil
	})
	res := d.Dispatch(FileEntry{Path: "menu.txt", Kind: KindText, Ext: "txt"})
	assert.Equal(t, OutcomeError, res.Outcome.Type)
	assert.Equal(t, ErrDecodeFailure, res.Outcome.ErrKind)
	assert.Zero(t, res.Tokens)
}

func TestDispatchSniffsBinaryContent(t *testing.T) {
	d := newTestDispatcher(t, DefaultConfig(), func(string) ([]byte, error) {
		return []byte("\x7fELF\x02\x01\x01\x00\x00"), nil
	})
	res := d.Dispatch(FileEntry{Path: "tool", Kind: KindText})
	assert.Equal(t, OutcomePlaceholder, res.Outcome.Type)
	assert.Equal(t, "[BINARY FILE]", res.Outcome.Body())
}

func TestDispatchCorruptDocument(t *testing.T) {
	d := newTestDispatcher(t, DefaultConfig(), func(string) ([]byte, error) {
		return []byte("garbage"), nil
	})
	res := d.Dispatch(FileEntry{Path: "docs/spec.pdf", Kind: KindDocument, Ext: "pdf"})
	assert.Equal(t, OutcomeError, res.Outcome.Type)
	assert.Equal(t, ErrExtractionFailure, res.Outcome.ErrKind)
}

func TestDispatchRecoversExtractorPanic(t *testing.T) {
	d := newTestDispatcher(t, DefaultConfig(), func(string) ([]byte, error) {
		return []byte("PK"), nil
	})
	d.spreadsheet = panicExtractor{}

	res := d.Dispatch(FileEntry{Path: "sheet.xlsx", Kind: KindSpreadsheet, Ext: "xlsx"})
	assert.Equal(t, OutcomeError, res.Outcome.Type)
	assert.Equal(t, ErrExtractionFailure, res.Outcome.ErrKind)
	assert.Equal(t, "extractor panic: boom", res.Outcome.Message)
}

func TestDispatchHTMLConversionIsOptIn(t *testing.T) {
	page := []byte("<h1>Hi</h1>")
	read := func(string) ([]byte, error) { return page, nil }
	entry := FileEntry{Path: "index.html", Kind: KindText, Ext: "html"}

	res := newTestDispatcher(t, DefaultConfig(), read).Dispatch(entry)
	assert.Equal(t, "<h1>Hi</h1>", res.Outcome.Text)

	cfg := DefaultConfig()
	cfg.HTMLToMarkdown = true
	res = newTestDispatcher(t, cfg, read).Dispatch(entry)
	assert.Equal(t, "# Hi", res.Outcome.Text)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "3.0 MB", humanSize(3*1024*1024))
}
