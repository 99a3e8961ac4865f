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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 300, cfg.Timeout)
	assert.Equal(t, 300*time.Second, cfg.AttemptTimeout())
	assert.Equal(t, "auto", cfg.DocumentEngine)
	assert.Equal(t, "auto", cfg.URLEngine)
	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, OnErrorWarn, cfg.Fallback.OnError)
	assert.Empty(t, cfg.Engines)
}

func TestLoadConfigEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "engines: [unclosed")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
timeout: 60
document_engine: docling
engines:
  application/pdf:
    - pdfium
    - pdf
  text/html: crawler
  documents: [docling]
fallback:
  enabled: true
  max_attempts: 2
  on_error: next
engine_options:
  pdf:
    tables: true
family_options:
  office:
    images: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Timeout)
	assert.Equal(t, "docling", cfg.DocumentEngine)
	assert.Equal(t, "auto", cfg.URLEngine)

	// Chains accept both scalar and sequence YAML forms.
	assert.Equal(t, []string{"pdfium", "pdf"}, cfg.EnginesForKey("application/pdf"))
	assert.Equal(t, []string{"crawler"}, cfg.EnginesForKey("text/html"))
	assert.Equal(t, []string{"docling"}, cfg.EnginesForKey("documents"))
	assert.Nil(t, cfg.EnginesForKey("image/*"))

	assert.Equal(t, 2, cfg.Fallback.MaxAttempts)
	assert.Equal(t, OnErrorNext, cfg.Fallback.OnError)

	assert.Equal(t, Options{"tables": true}, cfg.OptionsForEngine("pdf"))
	assert.Equal(t, Options{"images": false}, cfg.OptionsForFamily("office"))
	assert.Nil(t, cfg.OptionsForEngine("unknown"))
}

func TestLoadConfigRejectsMappingChain(t *testing.T) {
	path := writeConfigFile(t, `
engines:
  application/pdf:
    name: pdf
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigNormalizesBadValues(t *testing.T) {
	path := writeConfigFile(t, `
timeout: -5
document_engine: ""
fallback:
  max_attempts: 0
  on_error: explode
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Timeout)
	assert.Equal(t, "auto", cfg.DocumentEngine)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, OnErrorWarn, cfg.Fallback.OnError)
}

func TestEnvOverrideEngineChains(t *testing.T) {
	t.Setenv("CCORE_ENGINE_APPLICATION_PDF", "pdfium, pdf")
	t.Setenv("CCORE_ENGINE_DOCUMENTS", "docling")
	t.Setenv("CCORE_ENGINE_TEXT_HTML", " , ")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{"pdfium", "pdf"}, cfg.EnginesForKey("application/pdf"))
	assert.Equal(t, []string{"docling"}, cfg.EnginesForKey("documents"))
	// Blank entries collapse to nothing, so the key stays unset.
	assert.Nil(t, cfg.EnginesForKey("text/html"))
}

func TestEnvOverrideBeatsFile(t *testing.T) {
	path := writeConfigFile(t, `
engines:
  application/pdf: pdf
`)
	t.Setenv("CCORE_ENGINE_APPLICATION_PDF", "pdfium")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"pdfium"}, cfg.EnginesForKey("application/pdf"))
}

func TestEnvOverrideLegacyEngines(t *testing.T) {
	t.Setenv("CCORE_DOCUMENT_ENGINE", " docling ")
	t.Setenv("CCORE_URL_ENGINE", "crawler")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "docling", cfg.DocumentEngine)
	assert.Equal(t, "crawler", cfg.URLEngine)
}

func TestEnvOverrideFallback(t *testing.T) {
	t.Setenv("CCORE_FALLBACK_ENABLED", "false")
	t.Setenv("CCORE_FALLBACK_MAX_ATTEMPTS", "5")
	t.Setenv("CCORE_FALLBACK_ON_ERROR", "fail")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.Fallback.Enabled)
	assert.Equal(t, 5, cfg.Fallback.MaxAttempts)
	assert.Equal(t, OnErrorFail, cfg.Fallback.OnError)
}

func TestEnvOverrideFallbackInvalidValuesIgnored(t *testing.T) {
	t.Setenv("CCORE_FALLBACK_MAX_ATTEMPTS", "11")
	t.Setenv("CCORE_FALLBACK_ON_ERROR", "explode")
	t.Setenv("CCORE_TIMEOUT", "junk")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, OnErrorWarn, cfg.Fallback.OnError)
	assert.Equal(t, 300, cfg.Timeout)
}

func TestEnvOverrideTimeout(t *testing.T) {
	t.Setenv("CCORE_TIMEOUT", "45")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Timeout)
	assert.Equal(t, 45*time.Second, cfg.AttemptTimeout())
}

func TestParseEngineList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseEngineList("a, b"))
	assert.Equal(t, []string{"solo"}, parseEngineList("solo"))
	assert.Empty(t, parseEngineList(" , ,"))
}
