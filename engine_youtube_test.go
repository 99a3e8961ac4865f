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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=abc123&t=10s", "abc123"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ/", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/xyz789", "xyz789"},
		{"https://www.youtube.com/embed/xyz789", "xyz789"},
		{"https://www.youtube.com/live/stream1", "stream1"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, err := youTubeVideoID(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestYouTubeVideoIDMissing(t *testing.T) {
	_, err := youTubeVideoID("https://www.youtube.com/feed/subscriptions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video ID")
}

func TestExtractOpenGraph(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Talk: Building Parsers">
<meta property="og:description" content="A talk about parsing.">
</head><body></body></html>`

	assert.Equal(t, "Talk: Building Parsers", extractOpenGraph(page, "og:title"))
	assert.Equal(t, "A talk about parsing.", extractOpenGraph(page, "og:description"))
	assert.Equal(t, "", extractOpenGraph(page, "og:image"))
}

func TestYouTubeEngineRequiresURL(t *testing.T) {
	e := NewYouTubeEngine(testFetcher(nil))

	_, err := e.Extract(context.Background(), Source{
		Content:  []byte("x"),
		MIMEType: MIMETypeYouTube,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a URL")
}
