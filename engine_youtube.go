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
	"encoding/json"
	"encoding/xml"
	"fmt"
	stdhtml "html"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// YouTubeEngine extracts video metadata and the caption transcript from
// YouTube watch pages. It is bound to the "youtube" pseudo-MIME type.
type YouTubeEngine struct {
	fetch *fetcher
}

// NewYouTubeEngine creates a YouTubeEngine.
func NewYouTubeEngine(fetch *fetcher) *YouTubeEngine {
	return &YouTubeEngine{fetch: fetch}
}

func (e *YouTubeEngine) Name() string { return "youtube" }

func (e *YouTubeEngine) Available() bool { return true }

func (e *YouTubeEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes: []string{MIMETypeYouTube},
		Priority:  50,
		Category:  "urls",
	}
}

func (e *YouTubeEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	if source.URL == "" {
		return nil, fmt.Errorf("youtube engine requires a URL source")
	}

	videoID, err := youTubeVideoID(source.URL)
	if err != nil {
		return nil, err
	}

	pageData, _, err := e.fetch.fetch(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return nil, err
	}
	page := string(pageData)

	title := extractOpenGraph(page, "og:title")
	description := extractOpenGraph(page, "og:description")

	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	if description != "" {
		fmt.Fprintf(&b, "%s\n\n", description)
	}

	metadata := map[string]any{"video_id": videoID, "url": source.URL}
	if title != "" {
		metadata["title"] = title
	}

	var warnings []string
	transcript, err := e.fetchTranscript(ctx, page)
	if err != nil || transcript == "" {
		warnings = append(warnings, "no transcript available for video "+videoID)
	} else {
		b.WriteString("## Transcript\n\n")
		b.WriteString(transcript)
		b.WriteString("\n")
	}

	return &Result{
		Content:  normalizeOutput(b.String()),
		MIMEType: MIMETypeYouTube,
		Metadata: metadata,
		Warnings: warnings,
	}, nil
}

// youTubeVideoID pulls the video ID out of watch, share, shorts, and
// embed URL forms.
func youTubeVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse youtube URL: %w", err)
	}

	if strings.Contains(u.Host, "youtu.be") {
		id := strings.Trim(u.Path, "/")
		if id != "" {
			return id, nil
		}
	}
	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}
	for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok && rest != "" {
			return strings.Trim(rest, "/"), nil
		}
	}
	return "", fmt.Errorf("no video ID in URL %s", rawURL)
}

var reCaptionTracks = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// captionTrack is one entry of the player response captionTracks list.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// fetchTranscript locates the caption track list embedded in the watch
// page, fetches the timedtext document, and joins the cue texts.
func (e *YouTubeEngine) fetchTranscript(ctx context.Context, page string) (string, error) {
	m := reCaptionTracks.FindStringSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("no caption tracks found")
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return "", fmt.Errorf("parse caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("empty caption track list")
	}

	// Prefer a manually authored track over auto-generated ("asr").
	track := tracks[0]
	for _, t := range tracks {
		if t.Kind != "asr" {
			track = t
			break
		}
	}

	data, _, err := e.fetch.fetch(ctx, stdhtml.UnescapeString(track.BaseURL))
	if err != nil {
		return "", err
	}

	var doc struct {
		Texts []struct {
			Value string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	var parts []string
	for _, t := range doc.Texts {
		text := strings.TrimSpace(stdhtml.UnescapeString(t.Value))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// extractOpenGraph reads an Open Graph meta tag's content attribute.
func extractOpenGraph(page, property string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var content string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var prop, val string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "property", "name":
					prop = attr.Val
				case "content":
					val = attr.Val
				}
			}
			if prop == property {
				content = val
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if content != "" {
				return
			}
		}
	}
	walk(doc)
	return strings.TrimSpace(content)
}
