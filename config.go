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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OnErrorPolicy governs how the fallback executor reacts to a non-fatal
// engine failure.
type OnErrorPolicy string

const (
	// OnErrorNext continues to the next engine silently.
	OnErrorNext OnErrorPolicy = "next"
	// OnErrorWarn logs the failure and continues.
	OnErrorWarn OnErrorPolicy = "warn"
	// OnErrorFail aborts the chain immediately.
	OnErrorFail OnErrorPolicy = "fail"
)

// FallbackConfig configures fallback behavior during extraction.
type FallbackConfig struct {
	// Enabled toggles fallback; when false only the first engine of a
	// chain is attempted.
	Enabled bool `yaml:"enabled"`

	// MaxAttempts bounds how many engines are tried before giving up.
	MaxAttempts int `yaml:"max_attempts"`

	// OnError selects the non-fatal failure policy.
	OnError OnErrorPolicy `yaml:"on_error"`

	// FatalKinds lists error kinds that abort the chain instead of
	// triggering fallback.
	FatalKinds []ErrorKind `yaml:"fatal_kinds"`
}

// DefaultFallbackConfig mirrors the stock behavior: fallback on, three
// attempts, warn-and-continue, with filesystem and validation failures
// treated as fatal.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		Enabled:     true,
		MaxAttempts: 3,
		OnError:     OnErrorWarn,
		FatalKinds: []ErrorKind{
			KindFileNotFound,
			KindPermissionDenied,
			KindInvalidSource,
			KindFatal,
		},
	}
}

func (c FallbackConfig) isFatalKind(kind ErrorKind) bool {
	for _, k := range c.FatalKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// EngineChain is an ordered list of engine names. In YAML it accepts
// either a single name or a sequence.
type EngineChain []string

// UnmarshalYAML accepts "name" and ["a", "b"] forms.
func (c *EngineChain) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = EngineChain{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = EngineChain(list)
		return nil
	}
	return fmt.Errorf("engines entry must be a string or a list, got yaml kind %d", value.Kind)
}

// ExtractionConfig is the configuration-precedence source consulted by
// the resolver. It is resolved once (file plus environment overrides) and
// read-only afterwards.
type ExtractionConfig struct {
	// Timeout is the per-engine attempt timeout in seconds.
	Timeout int `yaml:"timeout"`

	// Engines maps MIME types ("application/pdf"), wildcard MIME types
	// ("image/*"), or categories ("documents") to engine chains.
	Engines map[string]EngineChain `yaml:"engines"`

	// Fallback configures chain execution.
	Fallback FallbackConfig `yaml:"fallback"`

	// EngineOptions holds per-engine option blocks.
	EngineOptions map[string]Options `yaml:"engine_options"`

	// FamilyOptions holds per-engine-family option blocks; these take
	// precedence over EngineOptions for engines in a known family.
	FamilyOptions map[string]Options `yaml:"family_options"`

	// DocumentEngine and URLEngine are the legacy single-engine
	// defaults, consulted only when set to something other than "auto".
	DocumentEngine string `yaml:"document_engine"`
	URLEngine      string `yaml:"url_engine"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *ExtractionConfig {
	return &ExtractionConfig{
		Timeout:        300,
		Engines:        map[string]EngineChain{},
		Fallback:       DefaultFallbackConfig(),
		EngineOptions:  map[string]Options{},
		FamilyOptions:  map[string]Options{},
		DocumentEngine: "auto",
		URLEngine:      "auto",
	}
}

// LoadConfig builds the effective configuration: defaults, then the YAML
// file at path (if non-empty), then CCORE_* environment overrides.
func LoadConfig(path string) (*ExtractionConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		cfg.normalize()
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *ExtractionConfig) normalize() {
	if c.Timeout <= 0 {
		c.Timeout = 300
	}
	if c.Engines == nil {
		c.Engines = map[string]EngineChain{}
	}
	if c.EngineOptions == nil {
		c.EngineOptions = map[string]Options{}
	}
	if c.FamilyOptions == nil {
		c.FamilyOptions = map[string]Options{}
	}
	if c.Fallback.MaxAttempts <= 0 {
		c.Fallback.MaxAttempts = 3
	}
	switch c.Fallback.OnError {
	case OnErrorNext, OnErrorWarn, OnErrorFail:
	default:
		c.Fallback.OnError = OnErrorWarn
	}
	if c.DocumentEngine == "" {
		c.DocumentEngine = "auto"
	}
	if c.URLEngine == "" {
		c.URLEngine = "auto"
	}
}

// EnginesForKey returns the configured chain for a MIME type, wildcard
// pattern, or category key, or nil when not configured.
func (c *ExtractionConfig) EnginesForKey(key string) []string {
	chain, ok := c.Engines[key]
	if !ok || len(chain) == 0 {
		return nil
	}
	return chain
}

// OptionsForEngine returns the per-engine option block, or nil.
func (c *ExtractionConfig) OptionsForEngine(name string) Options {
	return c.EngineOptions[name]
}

// OptionsForFamily returns the per-family option block, or nil.
func (c *ExtractionConfig) OptionsForFamily(family string) Options {
	return c.FamilyOptions[family]
}

// AttemptTimeout returns the per-engine timeout as a duration.
func (c *ExtractionConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// mimeToEnvKey maps MIME types and wildcard patterns to CCORE_ENGINE_*
// suffixes.
var mimeToEnvKey = map[string]string{
	"application/pdf": "APPLICATION_PDF",
	"application/epub+zip": "APPLICATION_EPUB",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "APPLICATION_DOCX",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "APPLICATION_XLSX",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "APPLICATION_PPTX",
	"application/msword": "APPLICATION_DOC",
	"text/html":          "TEXT_HTML",
	"text/plain":         "TEXT_PLAIN",
	"text/markdown":      "TEXT_MARKDOWN",
	"image/*":            "IMAGE",
	"audio/*":            "AUDIO",
	"video/*":            "VIDEO",
	"text/*":             "TEXT",
}

// categoryToEnvKey maps categories to CCORE_ENGINE_* suffixes.
var categoryToEnvKey = map[string]string{
	"documents": "DOCUMENTS",
	"urls":      "URLS",
	"audio":     "AUDIO",
	"video":     "VIDEO",
	"text":      "TEXT",
}

// applyEnvOverrides folds CCORE_* environment variables into the config:
//
//	CCORE_ENGINE_<MIME-KEY|CATEGORY>  comma-separated engine chain
//	CCORE_DOCUMENT_ENGINE             legacy document default
//	CCORE_URL_ENGINE                  legacy URL default
//	CCORE_FALLBACK_ENABLED            true/false
//	CCORE_FALLBACK_MAX_ATTEMPTS       1..10, invalid values ignored
//	CCORE_FALLBACK_ON_ERROR           next | warn | fail
//	CCORE_TIMEOUT                     seconds
func (c *ExtractionConfig) applyEnvOverrides() {
	for key, suffix := range mimeToEnvKey {
		if v, ok := os.LookupEnv("CCORE_ENGINE_" + suffix); ok {
			if chain := parseEngineList(v); len(chain) > 0 {
				c.Engines[key] = chain
			}
		}
	}
	for category, suffix := range categoryToEnvKey {
		if v, ok := os.LookupEnv("CCORE_ENGINE_" + suffix); ok {
			if chain := parseEngineList(v); len(chain) > 0 {
				c.Engines[category] = chain
			}
		}
	}

	if v, ok := os.LookupEnv("CCORE_DOCUMENT_ENGINE"); ok && strings.TrimSpace(v) != "" {
		c.DocumentEngine = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("CCORE_URL_ENGINE"); ok && strings.TrimSpace(v) != "" {
		c.URLEngine = strings.TrimSpace(v)
	}

	if v, ok := os.LookupEnv("CCORE_FALLBACK_ENABLED"); ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			c.Fallback.Enabled = true
		default:
			c.Fallback.Enabled = false
		}
	}
	if v, ok := os.LookupEnv("CCORE_FALLBACK_MAX_ATTEMPTS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 10 {
			c.Fallback.MaxAttempts = n
		}
	}
	if v, ok := os.LookupEnv("CCORE_FALLBACK_ON_ERROR"); ok {
		switch OnErrorPolicy(v) {
		case OnErrorNext, OnErrorWarn, OnErrorFail:
			c.Fallback.OnError = OnErrorPolicy(v)
		}
	}
	if v, ok := os.LookupEnv("CCORE_TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Timeout = n
		}
	}
}

// parseEngineList splits a comma-separated engine list, trimming
// whitespace and dropping empty entries.
func parseEngineList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
