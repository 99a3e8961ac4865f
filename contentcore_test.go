// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package contentcore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCore builds a ContentCore over stub engines only, so pipeline
// behavior can be tested without any real parsers.
func stubCore(t *testing.T, engines ...*stubEngine) *ContentCore {
	t.Helper()
	reg := NewRegistry()
	for _, e := range engines {
		reg.Register(e)
	}
	return New(WithRegistry(reg))
}

func TestExtractRejectsInvalidSource(t *testing.T) {
	core := stubCore(t)

	_, err := core.Extract(context.Background(), Request{})
	var verr *SourceValidationError
	require.ErrorAs(t, err, &verr)

	_, err = core.Extract(context.Background(), Request{Source: Source{
		FilePath: "a.txt",
		URL:      "https://example.com",
	}})
	require.ErrorAs(t, err, &verr)
}

func TestExtractContentDetectsMIMEType(t *testing.T) {
	pdf := newStub("pdf", 50, "application/pdf")
	core := stubCore(t, pdf)

	result, err := core.Extract(context.Background(), Request{
		Source: ContentSource([]byte("%PDF-1.7 fake body")),
	})
	require.NoError(t, err)
	assert.Equal(t, "content", result.SourceType)
	assert.Equal(t, "application/pdf", result.MIMEType)
	assert.Equal(t, "pdf", result.EngineUsed)
	assert.Equal(t, "content from pdf", result.Content)
}

func TestExtractUndetectableContentFallsBackToPlainText(t *testing.T) {
	text := newStub("text", 50, "text/plain")
	core := stubCore(t, text)

	result, err := core.Extract(context.Background(), Request{
		Source: ContentSource([]byte("just some prose with no structure")),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", result.MIMEType)
	assert.Equal(t, "text", result.EngineUsed)
}

func TestExtractDeclaredMIMETypeSkipsDetection(t *testing.T) {
	md := newStub("markdown", 50, "text/markdown")
	core := stubCore(t, md)

	// The bytes look like a PDF, but the declared type wins.
	result, err := core.Extract(context.Background(), Request{
		Source: Source{Content: []byte("%PDF-1.7"), MIMEType: "text/markdown"},
	})
	require.NoError(t, err)
	assert.Equal(t, "markdown", result.EngineUsed)
}

func TestExtractFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	text := newStub("text", 50, "text/plain")
	core := stubCore(t, text)

	result, err := core.Extract(context.Background(), Request{Source: FileSource(path)})
	require.NoError(t, err)
	assert.Equal(t, "file", result.SourceType)
	assert.Equal(t, "text/plain", result.MIMEType)
}

func TestExtractMissingFile(t *testing.T) {
	core := stubCore(t, newStub("text", 50, "text/plain"))

	_, err := core.Extract(context.Background(), Request{
		Source: FileSource(filepath.Join(t.TempDir(), "nope.txt")),
	})
	require.Error(t, err)
	assert.Equal(t, KindFileNotFound, KindOf(err))
}

func TestExtractURLDefaultsToHTML(t *testing.T) {
	web := newStub("web", 50, "text/html")
	web.caps.Category = "urls"
	core := stubCore(t, web)

	result, err := core.Extract(context.Background(), Request{
		Source: URLSource("https://example.com/post"),
	})
	require.NoError(t, err)
	assert.Equal(t, "url", result.SourceType)
	assert.Equal(t, "web", result.EngineUsed)
}

func TestExtractYouTubeURLOverridesDeclaredType(t *testing.T) {
	yt := newStub("youtube", 50, MIMETypeYouTube)
	yt.caps.Category = "urls"
	var seenMIME string
	yt.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		seenMIME = source.MIMEType
		return &Result{Content: "transcript"}, nil
	}
	core := stubCore(t, yt)

	result, err := core.Extract(context.Background(), Request{
		Source: Source{URL: "https://youtu.be/dQw4w9WgXcQ", MIMEType: "text/html"},
	})
	require.NoError(t, err)
	assert.Equal(t, "youtube", result.EngineUsed)
	assert.Equal(t, MIMETypeYouTube, seenMIME)
}

func TestExtractExplicitEngineOverride(t *testing.T) {
	pdf := newStub("pdf", 50, "application/pdf")
	alt := newStub("alt", 10, "application/pdf")
	core := stubCore(t, pdf, alt)

	result, err := core.Extract(context.Background(), Request{
		Source:  Source{Content: []byte("%PDF-1.7"), MIMEType: "application/pdf"},
		Engines: []string{"alt"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alt", result.EngineUsed)
}

func TestExtractNoEngineForType(t *testing.T) {
	core := stubCore(t, newStub("text", 50, "text/plain"))

	_, err := core.Extract(context.Background(), Request{
		Source: Source{Content: []byte("x"), MIMEType: "application/pdf"},
	})
	var noEngine *NoEngineError
	require.ErrorAs(t, err, &noEngine)
	assert.Equal(t, "application/pdf", noEngine.MIMEType)
}

func TestExtractFallbackChainSurfacesWarning(t *testing.T) {
	broken := newStub("broken", 60, "application/pdf")
	broken.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		return nil, errors.New("parser exploded")
	}
	backup := newStub("backup", 50, "application/pdf")
	core := stubCore(t, broken, backup)

	result, err := core.Extract(context.Background(), Request{
		Source: Source{Content: []byte("%PDF-1.7"), MIMEType: "application/pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, "backup", result.EngineUsed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "broken")
}

func TestExtractAppliesConfiguredEngineOptions(t *testing.T) {
	var seen Options
	pdf := newStub("pdf", 50, "application/pdf")
	pdf.extract = func(ctx context.Context, source Source, options Options) (*Result, error) {
		seen = options
		return &Result{Content: "ok"}, nil
	}

	cfg := DefaultConfig()
	cfg.EngineOptions["pdf"] = Options{"tables": true}

	reg := NewRegistry()
	reg.Register(pdf)
	core := New(WithRegistry(reg), WithConfig(cfg))

	_, err := core.Extract(context.Background(), Request{
		Source:  Source{Content: []byte("%PDF-1.7"), MIMEType: "application/pdf"},
		Options: Options{"images": false},
	})
	require.NoError(t, err)
	assert.Equal(t, Options{"tables": true, "images": false}, seen)
}

func TestNewRegistersBuiltins(t *testing.T) {
	core := New()

	names := core.Registry().ListNames()
	assert.Contains(t, names, "text")
	assert.Contains(t, names, "pdf")
	assert.Contains(t, names, "docx")
	assert.Contains(t, names, "url")
	assert.Contains(t, names, "youtube")
}

func TestAvailableEngines(t *testing.T) {
	core := New()

	engines := core.AvailableEngines()
	pdf, ok := engines["pdf"]
	require.True(t, ok)
	assert.True(t, pdf.Available)
	assert.Equal(t, "documents", pdf.Category)
	assert.Contains(t, pdf.MIMETypes, "application/pdf")

	// The pdfium build is tag-gated; without it the engine stays out of
	// the available set.
	if _, ok := engines["pdfium"]; ok {
		t.Log("pdfium engine available in this build")
	}
}

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, isYouTubeURL("https://www.youtube.com/watch?v=abc"))
	assert.True(t, isYouTubeURL("https://youtu.be/abc"))
	assert.False(t, isYouTubeURL("https://example.com/youtube-downloader"))
}
