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
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

const (
	// signaturePrefixLen bounds the read used for magic-byte matching.
	signaturePrefixLen = 512
	// textPrefixLen bounds the read used for text-content heuristics.
	textPrefixLen = 1024
)

// Detector classifies byte sources into MIME types using magic-byte
// signatures, container inspection, and text-content heuristics, with a
// file-extension table as last resort. Identical byte content always
// yields the identical classification; no I/O happens beyond the bounded
// prefix and, for ZIP archives, the central directory listing.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// byteSignature maps a magic-byte prefix to a MIME type. An empty
// mimeType marks a container that needs further inspection.
type byteSignature struct {
	prefix   []byte
	mimeType string
}

// binarySignatures is ordered most-specific-first; the first matching
// prefix wins.
var binarySignatures = []byteSignature{
	{[]byte("%PDF"), "application/pdf"},

	// Images
	{[]byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"}, // JFIF
	{[]byte{0xff, 0xd8, 0xff, 0xe1}, "image/jpeg"}, // EXIF
	{[]byte{0xff, 0xd8, 0xff}, "image/jpeg"},
	{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("II*\x00"), "image/tiff"},
	{[]byte("MM\x00*"), "image/tiff"},
	{[]byte("BM"), "image/bmp"},

	// Audio
	{[]byte("ID3"), "audio/mpeg"},
	{[]byte{0xff, 0xfb}, "audio/mpeg"},
	{[]byte{0xff, 0xf3}, "audio/mpeg"},
	{[]byte{0xff, 0xf2}, "audio/mpeg"},
	{[]byte("fLaC"), "audio/flac"},

	// Containers resolved by inspectRIFF / inspectZIP
	{[]byte("RIFF"), ""},
	{[]byte("PK\x03\x04"), "application/zip"},
	{[]byte("PK\x05\x06"), "application/zip"}, // empty archive
}

// zipContentPatterns resolves ZIP-based formats by member-name prefix.
var zipContentPatterns = []struct {
	prefix   string
	mimeType string
}{
	{"word/", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	{"xl/", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	{"ppt/", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	{"META-INF/container.xml", "application/epub+zip"},
}

// textPrefixPatterns are literal (case-insensitive) prefixes checked
// before the score-based heuristics.
var textPrefixPatterns = []struct {
	prefix   string
	mimeType string
}{
	{"<!doctype html", "text/html"},
	{"<html", "text/html"},
	{"<?xml", "text/xml"},
}

// extensionMIMETypes is the static extension fallback table.
var extensionMIMETypes = map[string]string{
	// Documents
	".pdf":      "application/pdf",
	".txt":      "text/plain",
	".md":       "text/plain", // markdown is treated as plain text
	".markdown": "text/plain",
	".rst":      "text/plain",
	".log":      "text/plain",

	// Web formats
	".html":  "text/html",
	".htm":   "text/html",
	".xhtml": "text/html",
	".xml":   "text/xml",

	// Data formats
	".json": "application/json",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".csv":  "text/csv",
	".tsv":  "text/csv",

	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",

	// Audio
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".wave": "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".wma":  "audio/x-ms-wma",

	// Video
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".qt":   "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".3gp":  "video/3gpp",

	// Office formats
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",

	// E-books
	".epub": "application/epub+zip",

	// Archives
	".zip": "application/zip",
	".tar": "application/x-tar",
	".gz":  "application/gzip",
	".bz2": "application/x-bzip2",
	".7z":  "application/x-7z-compressed",
	".rar": "application/x-rar-compressed",
}

// DetectFile classifies a local file. Fails with UnsupportedTypeError if
// no detection method succeeds.
func (d *Detector) DetectFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	header := make([]byte, textPrefixLen)
	n, err := io.ReadFull(f, header)
	f.Close()
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	header = header[:n]

	if mimeType := d.detectSignature(header, func() string {
		return inspectZIPFile(path)
	}); mimeType != "" {
		log.Debug().Str("path", path).Str("mime_type", mimeType).Msg("detected by signature")
		return mimeType, nil
	}

	if mimeType := detectTextFormat(header); mimeType != "" {
		log.Debug().Str("path", path).Str("mime_type", mimeType).Msg("detected by text analysis")
		return mimeType, nil
	}

	if mimeType, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		log.Debug().Str("path", path).Str("mime_type", mimeType).Msg("detected by extension")
		return mimeType, nil
	}

	return "", &UnsupportedTypeError{Path: path}
}

// DetectBytes classifies raw content. There is no extension fallback for
// anonymous bytes; fails with UnsupportedTypeError when signatures and
// text heuristics both come up empty.
func (d *Detector) DetectBytes(data []byte) (string, error) {
	header := data
	if len(header) > textPrefixLen {
		header = header[:textPrefixLen]
	}

	if mimeType := d.detectSignature(header, func() string {
		return inspectZIPBytes(data)
	}); mimeType != "" {
		return mimeType, nil
	}

	if mimeType := detectTextFormat(header); mimeType != "" {
		return mimeType, nil
	}

	return "", &UnsupportedTypeError{}
}

// detectSignature matches the bounded prefix against the signature table
// and resolves container formats. zipInspect is invoked only when a ZIP
// signature matches; it reads the archive's central directory.
func (d *Detector) detectSignature(header []byte, zipInspect func() string) string {
	if len(header) == 0 {
		return ""
	}
	sig := header
	if len(sig) > signaturePrefixLen {
		sig = sig[:signaturePrefixLen]
	}

	for _, s := range binarySignatures {
		if !bytes.HasPrefix(sig, s.prefix) {
			continue
		}
		if bytes.Equal(s.prefix, []byte("RIFF")) {
			if mimeType := inspectRIFF(sig); mimeType != "" {
				return mimeType
			}
			// Unknown RIFF form, keep looking elsewhere.
			continue
		}
		if s.mimeType == "application/zip" {
			if refined := zipInspect(); refined != "" {
				return refined
			}
			return s.mimeType
		}
		return s.mimeType
	}

	// ISO-BMFF: an ftyp box at offset 4 identifies the MP4 family.
	if len(sig) >= 12 && bytes.Equal(sig[4:8], []byte("ftyp")) {
		return mimeTypeForFtypBrand(sig[8:12])
	}

	return ""
}

// inspectRIFF disambiguates the RIFF container using bytes 8-12.
func inspectRIFF(header []byte) string {
	if len(header) < 12 {
		return ""
	}
	switch string(header[8:12]) {
	case "WAVE":
		return "audio/wav"
	case "AVI ":
		return "video/x-msvideo"
	}
	return ""
}

// mimeTypeForFtypBrand maps an ftyp brand field to the MP4-family MIME
// type, defaulting to generic MP4 for unrecognized brands.
func mimeTypeForFtypBrand(brand []byte) string {
	trimmed := strings.TrimRight(string(brand), " \x00")
	switch trimmed {
	case "M4A":
		return "audio/mp4"
	case "qt":
		return "video/quicktime"
	case "mp41", "mp42", "isom", "iso2", "M4V", "M4VP":
		return "video/mp4"
	}
	return "video/mp4"
}

// inspectZIPFile resolves a ZIP-based format from a file on disk.
func inspectZIPFile(path string) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		log.Debug().Str("path", path).Err(err).Msg("invalid ZIP archive")
		return ""
	}
	defer zr.Close()
	return matchZIPContents(zr.File)
}

// inspectZIPBytes resolves a ZIP-based format from an in-memory archive.
func inspectZIPBytes(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	return matchZIPContents(zr.File)
}

func matchZIPContents(files []*zip.File) string {
	for _, p := range zipContentPatterns {
		for _, f := range files {
			if strings.HasPrefix(f.Name, p.prefix) {
				return p.mimeType
			}
		}
	}
	return "application/zip"
}

// detectTextFormat applies the text-content heuristics to the bounded
// prefix: literal HTML/XML prefixes, then score-based JSON, YAML, CSV,
// and Markdown detection, then a plain-text printability check.
func detectTextFormat(header []byte) string {
	// Drop invalid UTF-8 sequences so binary noise does not skew the
	// printability ratio.
	content := strings.ToValidUTF8(string(header), "")
	if len(content) < 10 {
		return ""
	}

	trimmed := strings.TrimSpace(content)
	lowered := strings.ToLower(trimmed)
	for _, p := range textPrefixPatterns {
		if strings.HasPrefix(lowered, p.prefix) {
			return p.mimeType
		}
	}

	if looksLikeJSON(trimmed) {
		return "application/json"
	}
	if looksLikeYAML(content) {
		return "text/yaml"
	}
	if looksLikeCSV(content) {
		return "text/csv"
	}
	if looksLikeMarkdown(content) {
		return "text/plain" // markdown is treated as plain text
	}
	if isPlainText(content) {
		return "text/plain"
	}
	return ""
}

// looksLikeJSON checks for a bracket or brace start plus JSON indicators
// within the first ~200 characters.
func looksLikeJSON(content string) bool {
	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
		return false
	}

	head := content
	if len(head) > 100 {
		head = head[:100]
	}
	for _, ind := range []string{`":`, `": `, `",`, `, "`, `"]`, `"}`, "[]", "{}"} {
		if strings.Contains(head, ind) {
			return true
		}
	}

	keywordRegion := content
	if len(keywordRegion) > 200 {
		keywordRegion = keywordRegion[:200]
	}
	keywordRegion = strings.ToLower(keywordRegion)
	for _, kw := range []string{"true", "false", "null"} {
		if strings.Contains(keywordRegion, kw) {
			return true
		}
	}
	return false
}

// looksLikeYAML scores document markers, key: value lines, and list items
// over the first 20 lines. A document counts as YAML only when the score
// reaches 3 and at least two distinct key: value lines are present; a
// lone marker plus a single key: value line is not YAML.
func looksLikeYAML(content string) bool {
	if looksLikeMarkdown(content) {
		return false
	}

	lines := strings.Split(content, "\n")
	if len(lines) > 20 {
		lines = lines[:20]
	}

	score := 0
	keyValueLines := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		switch {
		case (stripped == "---" || stripped == "...") && i < 3:
			score += 3
		case isYAMLKeyValue(line):
			score++
			keyValueLines++
		case strings.HasPrefix(stripped, "- ") && len(stripped) > 2:
			score++
		}
	}

	return score >= 3 && keyValueLines >= 2
}

func isYAMLKeyValue(line string) bool {
	stripped := strings.TrimSpace(line)
	if strings.HasPrefix(stripped, "#") {
		return false
	}
	key, _, found := strings.Cut(line, ":")
	if !found {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	// Unquoted keys with embedded spaces are prose, not YAML.
	if strings.Contains(key, " ") && !strings.HasPrefix(key, `"`) && !strings.HasPrefix(key, "'") {
		return false
	}
	return true
}

// looksLikeCSV requires a consistent, non-zero comma count across the
// first 5 non-empty lines.
func looksLikeCSV(content string) bool {
	lines := strings.SplitN(content, "\n", 6)
	if len(lines) > 5 {
		lines = lines[:5]
	}
	if len(lines) < 2 {
		return false
	}

	counts := make([]int, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		counts = append(counts, strings.Count(line, ","))
	}
	if len(counts) < 2 || counts[0] == 0 {
		return false
	}
	for _, c := range counts[1:] {
		if c != counts[0] {
			return false
		}
	}
	return true
}

// looksLikeMarkdown applies a weighted score over structural indicators;
// a score of 3 or more qualifies.
func looksLikeMarkdown(content string) bool {
	lines := strings.Split(content, "\n")
	score := 0.0

	headLines := lines
	if len(headLines) > 30 {
		headLines = headLines[:30]
	}
	for _, line := range headLines {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, "#") && strings.Contains(stripped, " "):
			score += 2
		case strings.HasPrefix(stripped, "- ") || strings.HasPrefix(stripped, "* ") || strings.HasPrefix(stripped, "+ "):
			score += 1.5
		case isOrderedListItem(stripped):
			score += 1.5
		case strings.HasPrefix(stripped, "> "):
			score += 1.5
		case stripped == "---" || stripped == "***" || stripped == "___":
			score += 2
		case strings.HasPrefix(stripped, "```"):
			score += 2
		}
	}

	sample := content
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	if strings.Contains(sample, "![") && strings.Contains(sample, "](") {
		score += 2
	} else if strings.Contains(sample, "[") && strings.Contains(sample, "](") {
		score += 1.5
	}
	if strings.Contains(sample, "**") || strings.Contains(sample, "__") {
		score++
	}
	if strings.Contains(sample, "`") {
		score++
	}

	tableLines := lines
	if len(tableLines) > 20 {
		tableLines = tableLines[:20]
	}
	for _, line := range tableLines {
		if strings.Count(line, "|") >= 2 {
			score += 1.5
			break
		}
	}

	return score >= 3
}

func isOrderedListItem(s string) bool {
	if len(s) < 3 || s[0] < '0' || s[0] > '9' {
		return false
	}
	return s[1:3] == ". " || s[1:3] == ") "
}

// isPlainText requires a printable-character ratio above 95% and a
// maximum line length under 1000.
func isPlainText(content string) bool {
	if len(content) <= 20 {
		return false
	}

	printable := 0
	total := 0
	for _, r := range content {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 || float64(printable)/float64(total) <= 0.95 {
		return false
	}

	for _, line := range strings.Split(content, "\n") {
		if len(line) >= 1000 {
			return false
		}
	}
	return true
}
