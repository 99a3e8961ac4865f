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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Sample Page</title>
<style>body { color: red; }</style>
<script>console.log("noise");</script>
</head>
<body>
<h1>Heading</h1>
<p>Some <strong>bold</strong> text.</p>
</body>
</html>`

func testFetcher(client *http.Client) *fetcher {
	return &fetcher{client: client, userAgent: defaultUserAgent}
}

func TestURLEngineExtractContent(t *testing.T) {
	e := NewURLEngine(testFetcher(http.DefaultClient))

	result, err := e.Extract(context.Background(), Source{
		Content:  []byte(samplePage),
		MIMEType: "text/html",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, result.Content, "# Heading")
	assert.Contains(t, result.Content, "**bold**")
	assert.NotContains(t, result.Content, "console.log")
	assert.NotContains(t, result.Content, "color: red")
	assert.Equal(t, "Sample Page", result.Metadata["title"])
}

func TestURLEngineExtractFetchesURL(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	e := NewURLEngine(testFetcher(srv.Client()))

	result, err := e.Extract(context.Background(), Source{URL: srv.URL}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "# Heading")
	assert.Equal(t, srv.URL, result.Metadata["url"])
	assert.Equal(t, defaultUserAgent, gotUserAgent)
}

func TestURLEngineRejectsNonHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	e := NewURLEngine(testFetcher(srv.Client()))

	_, err := e.Extract(context.Background(), Source{URL: srv.URL}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-HTML content type")
}

func TestURLEngineHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewURLEngine(testFetcher(srv.Client()))

	_, err := e.Extract(context.Background(), Source{URL: srv.URL}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing whitespace stripped",
			input: "line one   \nline two\t\n",
			want:  "line one\nline two",
		},
		{
			name:  "multiple newlines collapsed",
			input: "a\n\n\n\n\nb",
			want:  "a\n\nb",
		},
		{
			name:  "crlf normalized",
			input: "a\r\nb\rc",
			want:  "a\nb\nc",
		},
		{
			name:  "control characters removed",
			input: "a\x00b\x1bc\td",
			want:  "abc\td",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "\n\n  hello  \n\n",
			want:  "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeOutput(tt.input))
		})
	}
}

func TestNormalizeOutputInvalidUTF8(t *testing.T) {
	out := normalizeOutput("ok\xff\xfealso ok")
	assert.True(t, strings.HasPrefix(out, "ok"))
	assert.Contains(t, out, "also ok")
}

func TestTruncateDataURIs(t *testing.T) {
	long := "data:image/png;base64," + strings.Repeat("A", 100)
	out := truncateDataURIs("![img](" + long + ")")
	assert.Equal(t, "![img](data:image/png;base64,...)", out)

	// Short URIs stay intact.
	short := "data:image/png;base64,AAAA"
	assert.Equal(t, short, truncateDataURIs(short))
}

func TestExtractHTMLTitle(t *testing.T) {
	assert.Equal(t, "Sample Page", extractHTMLTitle(samplePage))
	assert.Equal(t, "", extractHTMLTitle("<html><body>no title</body></html>"))
	assert.Equal(t, "Trimmed", extractHTMLTitle("<title>  Trimmed  </title>"))
}

func TestIsHTMLContentType(t *testing.T) {
	assert.True(t, isHTMLContentType("text/html"))
	assert.True(t, isHTMLContentType("text/html; charset=utf-8"))
	assert.True(t, isHTMLContentType("application/xhtml+xml"))
	assert.True(t, isHTMLContentType("text/plain"))
	assert.False(t, isHTMLContentType("application/pdf"))
}
