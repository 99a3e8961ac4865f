package contentcore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedEngine extracts RSS and Atom feeds: feed title and description,
// then each item with its publication date and content.
type FeedEngine struct {
	fetch *fetcher
}

// NewFeedEngine creates a FeedEngine.
func NewFeedEngine(fetch *fetcher) *FeedEngine {
	return &FeedEngine{fetch: fetch}
}

func (e *FeedEngine) Name() string { return "feed" }

func (e *FeedEngine) Available() bool { return true }

func (e *FeedEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes: []string{
			"application/rss+xml",
			"application/atom+xml",
			"text/xml",
			"application/xml",
		},
		Extensions: []string{".rss", ".atom", ".xml"},
		Priority:   55,
		Category:   "urls",
	}
}

func (e *FeedEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var b strings.Builder

	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n", feed.Title)
	}
	if feed.Description != "" {
		fmt.Fprintf(&b, "%s\n", feed.Description)
	}
	b.WriteString("\n")

	for _, item := range feed.Items {
		if item.Title != "" {
			fmt.Fprintf(&b, "## %s\n", item.Title)
		}

		if item.Published != "" {
			fmt.Fprintf(&b, "Published: %s\n\n", item.Published)
		} else if item.Updated != "" {
			fmt.Fprintf(&b, "Updated: %s\n\n", item.Updated)
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		if content != "" {
			// Feed bodies are frequently HTML fragments
			if strings.Contains(content, "<") && strings.Contains(content, ">") {
				if md, err := convertHTMLToMarkdown(content); err == nil {
					content = md
				}
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	metadata := map[string]any{"items": len(feed.Items)}
	if feed.Title != "" {
		metadata["title"] = feed.Title
	}

	return &Result{
		Content:  normalizeOutput(b.String()),
		MIMEType: "application/rss+xml",
		Metadata: metadata,
	}, nil
}
