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
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxFetchBytes caps how much of a remote body is read into memory.
const maxFetchBytes = 64 << 20 // 64 MiB

// fetcher performs HTTP retrieval for URL-facing engines.
type fetcher struct {
	client    *http.Client
	userAgent string
}

// fetch retrieves a URL body. The returned content type comes from the
// Content-Type header when present, otherwise from sniffing the body.
func (f *fetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

// readSource materializes the source's bytes regardless of form.
// Document engines consume files, raw bytes, and direct download URLs
// uniformly through this helper.
func readSource(ctx context.Context, source Source, fetch *fetcher) ([]byte, error) {
	switch {
	case source.FilePath != "":
		data, err := os.ReadFile(source.FilePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source.FilePath, err)
		}
		return data, nil
	case source.URL != "":
		if fetch == nil {
			return nil, fmt.Errorf("no HTTP client configured for %s", source.URL)
		}
		data, _, err := fetch.fetch(ctx, source.URL)
		return data, err
	default:
		return source.Content, nil
	}
}

// charsetOption reads the optional "charset" processor option.
func charsetOption(options Options) string {
	if options == nil {
		return ""
	}
	if cs, ok := options["charset"].(string); ok {
		return cs
	}
	return ""
}
