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
	"strings"

	"github.com/rs/zerolog/log"
)

// MIMETypeYouTube is the pseudo-MIME type ascribed to YouTube URLs. It
// binds unconditionally to the youtube engine when that engine is
// registered, bypassing configured chains.
const MIMETypeYouTube = "youtube"

// mimeTypeToCategory maps exact MIME types to categories.
var mimeTypeToCategory = map[string]string{
	"application/pdf":      "documents",
	"application/epub+zip": "documents",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "documents",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "documents",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "documents",
	"application/msword": "documents",
	"text/html":          "urls",
	"text/plain":         "text",
	"text/markdown":      "text",
	MIMETypeYouTube:      "urls",
}

// wildcardMIMEToCategory maps wildcard patterns to categories. Images are
// processed as documents.
var wildcardMIMEToCategory = map[string]string{
	"image/*": "documents",
	"audio/*": "audio",
	"video/*": "video",
	"text/*":  "text",
}

// engineFamilies groups engines whose option blocks are shared.
var engineFamilies = map[string]string{
	"docx":    "office",
	"xlsx":    "office",
	"xls":     "office",
	"pptx":    "office",
	"epub":    "office",
	"pdf":     "pdf",
	"pdfium":  "pdf",
	"url":     "web",
	"feed":    "web",
	"youtube": "web",
}

// categoryForMIMEType returns the category for a MIME type, consulting
// exact entries before wildcard entries. Empty when unknown.
func categoryForMIMEType(mimeType string) string {
	if cat, ok := mimeTypeToCategory[mimeType]; ok {
		return cat
	}
	for pattern, cat := range wildcardMIMEToCategory {
		if matchMIMEPattern(pattern, mimeType) {
			return cat
		}
	}
	return ""
}

// wildcardForMIMEType returns the "type/*" form of a MIME type, or empty
// when the type has no main/sub structure.
func wildcardForMIMEType(mimeType string) string {
	main, _, found := strings.Cut(mimeType, "/")
	if !found || main == "" {
		return ""
	}
	return main + "/*"
}

// EngineResolver turns a MIME type into an ordered engine chain by
// walking the configuration precedence levels.
type EngineResolver struct {
	config   *ExtractionConfig
	registry *Registry
}

// NewEngineResolver builds a resolver over the given configuration and
// registry.
func NewEngineResolver(config *ExtractionConfig, registry *Registry) *EngineResolver {
	return &EngineResolver{config: config, registry: registry}
}

// Resolve returns the ordered engine chain for a MIME type. Precedence,
// first non-empty result wins:
//
//  1. explicit override from the caller
//  2. special-case binding (YouTube pseudo-MIME to the youtube engine)
//  3. configured chain for the exact MIME type
//  4. configured chain for the wildcard form
//  5. configured chain for the category (argument or static mapping)
//  6. legacy document/url single-engine default, unless "auto"
//  7. registry auto-detection, priority-sorted
//
// Fails with NoEngineError enumerating all registered names when every
// level comes up empty.
func (r *EngineResolver) Resolve(mimeType string, explicit []string, category string) ([]string, error) {
	if len(explicit) > 0 {
		log.Debug().Strs("engines", explicit).Msg("using explicit engines")
		return append([]string(nil), explicit...), nil
	}

	// YouTube URLs always use the specialized transcript engine,
	// ahead of any configured URL chain.
	if mimeType == MIMETypeYouTube {
		if p := r.registry.Get("youtube"); p != nil {
			log.Debug().Msg("using youtube engine for YouTube URL")
			return []string{"youtube"}, nil
		}
	}

	if engines := r.config.EnginesForKey(mimeType); len(engines) > 0 {
		log.Debug().Str("mime_type", mimeType).Strs("engines", engines).Msg("using configured engines for MIME type")
		return engines, nil
	}

	if wildcard := wildcardForMIMEType(mimeType); wildcard != "" {
		if engines := r.config.EnginesForKey(wildcard); len(engines) > 0 {
			log.Debug().Str("pattern", wildcard).Strs("engines", engines).Msg("using configured engines for wildcard")
			return engines, nil
		}
	}

	resolvedCategory := category
	if resolvedCategory == "" {
		resolvedCategory = categoryForMIMEType(mimeType)
	}
	if resolvedCategory != "" {
		if engines := r.config.EnginesForKey(resolvedCategory); len(engines) > 0 {
			log.Debug().Str("category", resolvedCategory).Strs("engines", engines).Msg("using configured engines for category")
			return engines, nil
		}
	}

	if legacy := r.legacyEngine(mimeType, resolvedCategory); legacy != "" && legacy != "auto" {
		log.Debug().Str("engine", legacy).Msg("using legacy engine default")
		return []string{legacy}, nil
	}

	if engines := r.autoDetect(mimeType); len(engines) > 0 {
		log.Debug().Str("mime_type", mimeType).Strs("engines", engines).Msg("auto-detected engines")
		return engines, nil
	}

	return nil, &NoEngineError{MIMEType: mimeType, Registered: r.registry.ListNames()}
}

// legacyEngine picks between the two legacy single-engine defaults: URLs
// get the url default, everything else the document default.
func (r *EngineResolver) legacyEngine(mimeType, category string) string {
	if category == "urls" || mimeType == "text/html" || mimeType == MIMETypeYouTube {
		return r.config.URLEngine
	}
	return r.config.DocumentEngine
}

// autoDetect queries the registry for processors supporting the MIME
// type; the result is already priority-sorted with stable ties.
func (r *EngineResolver) autoDetect(mimeType string) []string {
	procs := r.registry.FindForMIMEType(mimeType)
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		names = append(names, p.Name())
	}
	return names
}

// EngineOptions returns the merged option block for a named engine:
// family-specific options (when the engine belongs to a known family)
// take precedence over the generic per-engine block.
func (r *EngineResolver) EngineOptions(name string) Options {
	opts := Options{}
	if engineOpts := r.config.OptionsForEngine(name); engineOpts != nil {
		opts = opts.merged(engineOpts)
	}
	if family, ok := engineFamilies[name]; ok {
		if familyOpts := r.config.OptionsForFamily(family); familyOpts != nil {
			opts = opts.merged(familyOpts)
		}
	}
	return opts
}
