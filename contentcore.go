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

// Package contentcore extracts textual content from heterogeneous sources
// (files, URLs, raw bytes) by dispatching to pluggable extraction engines.
// A content-sniffing detector classifies the source, a precedence-based
// resolver turns the MIME type into an ordered engine chain, and a
// fallback executor walks the chain with timeouts and fatal/retryable
// error classification.
package contentcore

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultUserAgent = "contentcore-go/1.0"

// ContentCore is the main extraction pipeline: detector, registry,
// resolver, and fallback executor wired around one configuration.
type ContentCore struct {
	registry   *Registry
	config     *ExtractionConfig
	detector   *Detector
	resolver   *EngineResolver
	executor   *FallbackExecutor
	httpClient *http.Client
	userAgent  string

	skipBuiltins bool
}

// Option configures a ContentCore instance.
type Option func(*ContentCore)

// WithConfig replaces the default configuration (environment overrides
// included) with cfg.
func WithConfig(cfg *ExtractionConfig) Option {
	return func(c *ContentCore) {
		c.config = cfg
	}
}

// WithRegistry supplies a pre-populated registry; the builtin engines are
// not registered.
func WithRegistry(r *Registry) Option {
	return func(c *ContentCore) {
		c.registry = r
		c.skipBuiltins = true
	}
}

// WithHTTPClient replaces the HTTP client used by URL-facing engines.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ContentCore) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header for URL-facing engines.
func WithUserAgent(ua string) Option {
	return func(c *ContentCore) {
		c.userAgent = ua
	}
}

// New creates a ContentCore instance with the builtin engines registered.
func New(opts ...Option) *ContentCore {
	c := &ContentCore{
		detector:   NewDetector(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config == nil {
		cfg, err := LoadConfig("")
		if err != nil {
			// LoadConfig without a file path cannot fail; keep the
			// zero-config path total anyway.
			cfg = DefaultConfig()
		}
		c.config = cfg
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if !c.skipBuiltins {
		c.registerBuiltins()
	}
	c.resolver = NewEngineResolver(c.config, c.registry)
	c.executor = NewFallbackExecutor(c.config.Fallback, c.registry)
	return c
}

// registerBuiltins registers every builtin engine once at construction.
// Registration order is the tie-break for equal priorities, so the list
// below is ordering-sensitive.
func (c *ContentCore) registerBuiltins() {
	fetch := &fetcher{client: c.httpClient, userAgent: c.userAgent}

	c.registry.Register(NewTextEngine())
	c.registry.Register(NewPDFEngine(fetch))
	c.registry.Register(NewPDFiumEngine(fetch))
	c.registry.Register(NewDocxEngine(fetch))
	c.registry.Register(NewXlsxEngine(fetch))
	c.registry.Register(NewXlsEngine(fetch))
	c.registry.Register(NewPptxEngine(fetch))
	c.registry.Register(NewEpubEngine(fetch))
	c.registry.Register(NewURLEngine(fetch))
	c.registry.Register(NewFeedEngine(fetch))
	c.registry.Register(NewYouTubeEngine(fetch))
}

// Registry exposes the processor registry for administrative use
// (registration of custom engines, test setup).
func (c *ContentCore) Registry() *Registry {
	return c.registry
}

// Request describes one extraction call.
type Request struct {
	// Source is the input to extract from.
	Source Source

	// Engines is an explicit override chain; when non-empty it bypasses
	// every configured precedence level.
	Engines []string

	// Timeout bounds each engine attempt; zero means the configured
	// default.
	Timeout time.Duration

	// Options are global processor options, merged under any per-engine
	// option blocks.
	Options Options
}

// ExtractionResult is the caller-facing output of Extract.
type ExtractionResult struct {
	Content    string
	SourceType string
	MIMEType   string
	Metadata   map[string]any
	EngineUsed string
	Warnings   []string
}

// Extract validates the source, detects its MIME type when undeclared,
// resolves the engine chain, and executes it with fallback.
func (c *ContentCore) Extract(ctx context.Context, req Request) (*ExtractionResult, error) {
	source := req.Source
	if err := source.Validate(); err != nil {
		return nil, err
	}

	mimeType := source.MIMEType
	// YouTube URLs are routed by pseudo-MIME regardless of declaration.
	if source.URL != "" && isYouTubeURL(source.URL) {
		mimeType = MIMETypeYouTube
	}
	if mimeType == "" {
		detected, err := c.detectMIMEType(source)
		if err != nil {
			return nil, err
		}
		mimeType = detected
		log.Debug().Str("mime_type", mimeType).Msg("detected MIME type")
	}
	source.MIMEType = mimeType

	engines, err := c.resolver.Resolve(mimeType, req.Engines, "")
	if err != nil {
		return nil, err
	}
	log.Info().Str("mime_type", mimeType).Strs("engines", engines).Msg("resolved engine chain")

	engineOptions := make(map[string]Options, len(engines))
	for _, name := range engines {
		engineOptions[name] = c.resolver.EngineOptions(name)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.AttemptTimeout()
	}

	result, err := c.executor.Execute(ctx, source, engines, req.Options, engineOptions, timeout)
	if err != nil {
		return nil, err
	}

	engineUsed, _ := result.Metadata[MetadataEngineKey].(string)
	return &ExtractionResult{
		Content:    result.Content,
		SourceType: source.SourceType(),
		MIMEType:   result.MIMEType,
		Metadata:   result.Metadata,
		EngineUsed: engineUsed,
		Warnings:   result.Warnings,
	}, nil
}

// detectMIMEType classifies a source with an undeclared MIME type. Files
// and raw bytes run through the detector; non-YouTube URLs default to
// HTML, with the real content type re-checked by the url engine on fetch.
func (c *ContentCore) detectMIMEType(source Source) (string, error) {
	switch {
	case source.FilePath != "":
		return c.detector.DetectFile(source.FilePath)
	case source.URL != "":
		return "text/html", nil
	default:
		mimeType, err := c.detector.DetectBytes(source.Content)
		if err != nil {
			if IsUnsupportedType(err) {
				return "text/plain", nil
			}
			return "", err
		}
		return mimeType, nil
	}
}

// EngineInfo reports a registered engine's declared capabilities.
type EngineInfo struct {
	MIMETypes  []string
	Extensions []string
	Priority   int
	Category   string
	Requires   []string
	Available  bool
}

// AvailableEngines returns capability information for every registered
// engine, keyed by name.
func (c *ContentCore) AvailableEngines() map[string]EngineInfo {
	engines := make(map[string]EngineInfo)
	for _, p := range c.registry.ListAvailable() {
		caps := p.Capabilities()
		engines[p.Name()] = EngineInfo{
			MIMETypes:  caps.MIMETypes,
			Extensions: caps.Extensions,
			Priority:   caps.Priority,
			Category:   caps.Category,
			Requires:   caps.Requires,
			Available:  p.Available(),
		}
	}
	return engines
}

// isYouTubeURL reports whether a URL points at YouTube.
func isYouTubeURL(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}
