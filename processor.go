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
	"strings"
)

// MetadataEngineKey is the metadata entry naming the engine that produced
// a Result. The executor guarantees it is present on every success.
const MetadataEngineKey = "extraction_engine"

// Capabilities declares what a processor can handle.
type Capabilities struct {
	// MIMETypes lists the supported MIME types. Entries may be exact
	// ("application/pdf") or wildcard patterns ("image/*").
	MIMETypes []string

	// Extensions lists supported file extensions, with leading dot.
	Extensions []string

	// Priority orders candidates during auto-selection (0-100, higher
	// preferred). Equal priorities preserve registration order.
	Priority int

	// Requires names external dependencies the processor needs.
	Requires []string

	// Category groups processors (documents, urls, audio, video, text).
	Category string
}

// SupportsMIMEType reports whether the capability set matches the given
// MIME type, honoring "type/*" wildcard patterns.
func (c Capabilities) SupportsMIMEType(mimeType string) bool {
	for _, pattern := range c.MIMETypes {
		if matchMIMEPattern(pattern, mimeType) {
			return true
		}
	}
	return false
}

// SupportsExtension reports whether the capability set lists the given
// extension (with or without leading dot, case-insensitive).
func (c Capabilities) SupportsExtension(ext string) bool {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// matchMIMEPattern matches an exact MIME type or a "type/*" wildcard.
func matchMIMEPattern(pattern, mimeType string) bool {
	if main, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mimeType, main+"/")
	}
	return pattern == mimeType
}

// Result is the standardized output of every processor.
type Result struct {
	// Content is the extracted text.
	Content string

	// MIMEType is the type of the source that was processed.
	MIMEType string

	// Metadata carries extraction details; always includes the producing
	// engine name under MetadataEngineKey after executor post-processing.
	Metadata map[string]any

	// Warnings collects non-fatal issues, including fallback notices.
	Warnings []string
}

// Processor is the contract every extraction engine implements.
type Processor interface {
	// Name is the unique engine identifier used in chains and config.
	Name() string

	// Capabilities describes what this processor handles.
	Capabilities() Capabilities

	// Available reports whether the processor's dependencies are present.
	// Evaluated once at registration time.
	Available() bool

	// Extract pulls content from the source. The context carries the
	// per-attempt deadline; implementations should honor cancellation on
	// blocking work.
	Extract(ctx context.Context, source Source, options Options) (*Result, error)
}
