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
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// URLEngine fetches web pages and converts their HTML to markdown. It
// also handles local HTML files and raw HTML bytes.
type URLEngine struct {
	fetch *fetcher
}

// NewURLEngine creates a URLEngine.
func NewURLEngine(fetch *fetcher) *URLEngine {
	return &URLEngine{fetch: fetch}
}

func (e *URLEngine) Name() string { return "url" }

func (e *URLEngine) Available() bool { return true }

func (e *URLEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{"text/html", "application/xhtml+xml"},
		Extensions: []string{".html", ".htm"},
		Priority:   50,
		Category:   "urls",
	}
}

func (e *URLEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	var (
		data        []byte
		contentType string
		err         error
	)
	if source.URL != "" {
		data, contentType, err = e.fetch.fetch(ctx, source.URL)
	} else {
		data, err = readSource(ctx, source, nil)
		contentType = source.MIMEType
	}
	if err != nil {
		return nil, err
	}

	// A URL declared as HTML may turn out to be something else once
	// fetched. Refuse rather than mangle it.
	if source.URL != "" && contentType != "" && !isHTMLContentType(contentType) {
		return nil, fmt.Errorf("url %s returned non-HTML content type %q", source.URL, contentType)
	}

	htmlStr := string(data)
	title := extractHTMLTitle(htmlStr)

	md, err := convertHTMLToMarkdown(removeScriptAndStyle(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("convert HTML to markdown: %w", err)
	}
	md = truncateDataURIs(md)
	md = normalizeOutput(md)

	metadata := map[string]any{}
	if title != "" {
		metadata["title"] = title
	}
	if source.URL != "" {
		metadata["url"] = source.URL
	}

	return &Result{Content: md, MIMEType: "text/html", Metadata: metadata}, nil
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml") ||
		strings.HasPrefix(ct, "text/plain")
}

// convertHTMLToMarkdown converts HTML to markdown using html-to-markdown.
func convertHTMLToMarkdown(htmlStr string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)

	return conv.ConvertString(htmlStr)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)

	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
)

// removeScriptAndStyle removes <script> and <style> tags and their content.
func removeScriptAndStyle(htmlStr string) string {
	htmlStr = reScript.ReplaceAllString(htmlStr, "")
	htmlStr = reStyle.ReplaceAllString(htmlStr, "")
	return htmlStr
}

// truncateDataURIs truncates large base64 data URIs to data:mime/type;base64...
func truncateDataURIs(md string) string {
	return reDataURI.ReplaceAllString(md, "${1}...")
}

// extractHTMLTitle extracts the title from an HTML document.
func extractHTMLTitle(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
			if title != "" {
				return
			}
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}

// normalizeOutput post-processes converted markdown:
// - Normalize line endings (CRLF -> LF)
// - Strip trailing whitespace from each line
// - Collapse 3+ consecutive newlines to 2
// - Strip non-printable/control characters (keep \n, \t)
// - Ensure output is valid UTF-8
// - Trim leading/trailing whitespace from final output
func normalizeOutput(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	// Add a trailing newline so the last line is processed too
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")

	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
