package contentcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name     string
		source   Source
		provided int
	}{
		{"none", Source{}, 0},
		{"file", FileSource("doc.pdf"), 1},
		{"url", URLSource("https://example.com"), 1},
		{"content", ContentSource([]byte("hello")), 1},
		{"empty content is still content", Source{Content: []byte{}}, 1},
		{"file and url", Source{FilePath: "a", URL: "b"}, 2},
		{"all three", Source{FilePath: "a", URL: "b", Content: []byte("c")}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.provided == 1 {
				assert.NoError(t, err)
				return
			}
			var verr *SourceValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.provided, verr.Provided)
			assert.Equal(t, KindInvalidSource, KindOf(err))
		})
	}
}

func TestSourceType(t *testing.T) {
	file := FileSource("doc.pdf")
	url := URLSource("https://example.com")
	content := ContentSource([]byte("x"))
	assert.Equal(t, "file", file.SourceType())
	assert.Equal(t, "url", url.SourceType())
	assert.Equal(t, "content", content.SourceType())
	assert.Equal(t, "content", (&Source{}).SourceType())
}

func TestOptionsMerged(t *testing.T) {
	base := Options{"tables": true, "images": true}
	out := base.merged(Options{"images": false, "ocr": "auto"})

	assert.Equal(t, Options{"tables": true, "images": false, "ocr": "auto"}, out)

	// The receiver is never mutated.
	assert.Equal(t, Options{"tables": true, "images": true}, base)

	assert.Equal(t, Options{"a": 1}, Options(nil).merged(Options{"a": 1}))
	assert.Empty(t, Options(nil).merged(nil))
}
