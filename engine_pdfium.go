//go:build pdfium

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
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/responses"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	pdfiumPool     pdfium.Pool
	pdfiumPoolOnce sync.Once
	pdfiumPoolErr  error
)

func initPdfiumPool() {
	pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
}

// PDFiumEngine extracts PDF text with the PDFium library via WebAssembly.
// It recovers heading structure from font metrics, so it outranks the
// pure-Go pdf engine when compiled in.
type PDFiumEngine struct {
	fetch *fetcher
}

// NewPDFiumEngine creates a PDFiumEngine.
func NewPDFiumEngine(fetch *fetcher) *PDFiumEngine {
	return &PDFiumEngine{fetch: fetch}
}

func (e *PDFiumEngine) Name() string { return "pdfium" }

func (e *PDFiumEngine) Available() bool {
	pdfiumPoolOnce.Do(initPdfiumPool)
	return pdfiumPoolErr == nil
}

func (e *PDFiumEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{"application/pdf"},
		Extensions: []string{".pdf"},
		Priority:   65,
		Category:   "documents",
		Requires:   []string{"pdfium-wasm"},
	}
}

func (e *PDFiumEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	pdfiumPoolOnce.Do(initPdfiumPool)
	if pdfiumPoolErr != nil {
		return nil, fmt.Errorf("init pdfium: %w", pdfiumPoolErr)
	}

	instance, err := pdfiumPool.GetInstance(30 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("get pdfium instance: %w", err)
	}
	defer instance.Close()

	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	pageCountResp, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		return nil, fmt.Errorf("get page count: %w", err)
	}

	var md strings.Builder
	for i := 0; i < pageCountResp.PageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text := extractPdfiumPage(instance, doc, i)
		if text == "" {
			continue
		}
		md.WriteString(text)
		md.WriteString("\n\n")
	}

	content := md.String()
	warnings := []string(nil)
	if strings.TrimSpace(content) == "" {
		content = ""
		warnings = append(warnings, "no readable text content found in PDF")
	}

	return &Result{
		Content:  content,
		MIMEType: "application/pdf",
		Metadata: map[string]any{"pages": pageCountResp.PageCount},
		Warnings: warnings,
	}, nil
}

// pdfiumRect is a text rectangle with font metadata.
type pdfiumRect struct {
	text     string
	left     float64
	top      float64
	fontSize float64
	fontName string
}

// pdfiumLine is a line of text grouped from rects.
type pdfiumLine struct {
	rects    []pdfiumRect
	top      float64
	fontSize float64
	fontName string
}

func (l *pdfiumLine) text() string {
	var b strings.Builder
	for _, r := range l.rects {
		b.WriteString(r.text)
	}
	return b.String()
}

// extractPdfiumPage extracts one page, promoting oversized lines to
// markdown headings.
func extractPdfiumPage(instance pdfium.Pdfium, doc *responses.OpenDocument, pageIdx int) string {
	structured, err := instance.GetPageTextStructured(&requests.GetPageTextStructured{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    pageIdx,
			},
		},
		Mode:                   requests.GetPageTextStructuredModeRects,
		CollectFontInformation: true,
	})
	if err != nil || len(structured.Rects) == 0 {
		textResp, err := instance.GetPageText(&requests.GetPageText{
			Page: requests.Page{
				ByIndex: &requests.PageByIndex{
					Document: doc.Document,
					Index:    pageIdx,
				},
			},
		})
		if err != nil {
			return ""
		}
		return strings.TrimSpace(textResp.Text)
	}

	var rects []pdfiumRect
	for _, r := range structured.Rects {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		pr := pdfiumRect{
			text: r.Text,
			left: r.PointPosition.Left,
			top:  r.PointPosition.Top,
		}
		if r.FontInformation != nil {
			pr.fontSize = r.FontInformation.Size
			pr.fontName = r.FontInformation.Name
		}
		rects = append(rects, pr)
	}
	if len(rects) == 0 {
		return ""
	}

	lines := groupPdfiumLines(rects)
	bodySize := pdfiumBodyFontSize(lines)

	var md strings.Builder
	for _, line := range lines {
		text := strings.TrimSpace(line.text())
		if text == "" {
			continue
		}
		// Tiny standalone annotations (footnote markers) are noise.
		if line.fontSize > 0 && bodySize > 0 && line.fontSize < bodySize*0.6 && len(text) <= 3 {
			continue
		}
		if level := pdfiumHeadingLevel(line.fontSize, bodySize, pdfiumFontIsBold(line.fontName)); level > 0 {
			if md.Len() > 0 {
				md.WriteString("\n")
			}
			md.WriteString(strings.Repeat("#", level))
			md.WriteString(" ")
			md.WriteString(text)
			md.WriteString("\n\n")
		} else {
			md.WriteString(text)
			md.WriteString("\n")
		}
	}
	return md.String()
}

// groupPdfiumLines groups rects by vertical position into top-to-bottom
// lines with left-to-right rect order.
func groupPdfiumLines(rects []pdfiumRect) []pdfiumLine {
	sort.Slice(rects, func(i, j int) bool {
		if math.Abs(rects[i].top-rects[j].top) < 2 {
			return rects[i].left < rects[j].left
		}
		return rects[i].top > rects[j].top
	})

	var lines []pdfiumLine
	for _, r := range rects {
		merged := false
		for i := range lines {
			if math.Abs(lines[i].top-r.top) < 3 {
				lines[i].rects = append(lines[i].rects, r)
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, pdfiumLine{rects: []pdfiumRect{r}, top: r.top})
		}
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].top > lines[j].top
	})

	for i := range lines {
		sort.Slice(lines[i].rects, func(a, b int) bool {
			return lines[i].rects[a].left < lines[i].rects[b].left
		})
		lines[i].fontSize, lines[i].fontName = pdfiumDominantFont(lines[i].rects)
	}
	return lines
}

// pdfiumDominantFont returns the font size and name covering the most text.
func pdfiumDominantFont(rects []pdfiumRect) (float64, string) {
	type fontKey struct {
		size float64
		name string
	}
	counts := map[fontKey]int{}
	for _, r := range rects {
		k := fontKey{size: math.Round(r.fontSize*10) / 10, name: r.fontName}
		counts[k] += len(r.text)
	}
	var bestKey fontKey
	bestCount := 0
	for k, c := range counts {
		if c > bestCount {
			bestCount = c
			bestKey = k
		}
	}
	return bestKey.size, bestKey.name
}

// pdfiumBodyFontSize finds the most common font size weighted by character
// count, which represents the body text.
func pdfiumBodyFontSize(lines []pdfiumLine) float64 {
	sizeCounts := map[float64]int{}
	for _, l := range lines {
		for _, r := range l.rects {
			rounded := math.Round(r.fontSize*10) / 10
			sizeCounts[rounded] += len(strings.TrimSpace(r.text))
		}
	}
	var bodySize float64
	maxCount := 0
	for size, count := range sizeCounts {
		if count > maxCount {
			maxCount = count
			bodySize = size
		}
	}
	return bodySize
}

func pdfiumFontIsBold(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bold") ||
		strings.Contains(lower, "medi") ||
		strings.HasSuffix(lower, "bd")
}

// pdfiumHeadingLevel maps a line's font size relative to the body size to
// a markdown heading level. Zero means body text.
func pdfiumHeadingLevel(fontSize, bodySize float64, isBold bool) int {
	if bodySize <= 0 {
		return 0
	}
	ratio := fontSize / bodySize
	switch {
	case ratio >= 2.0:
		return 1
	case ratio >= 1.5:
		return 2
	case ratio >= 1.1:
		if isBold {
			return 3
		}
		return 4
	default:
		return 0
	}
}
