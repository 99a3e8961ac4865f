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
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/nicholasgasior/contentcore-go/internal/ooxml"
)

// MIMETypeDocx is the Word document MIME type.
const MIMETypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DocxEngine extracts Word documents by translating document.xml to HTML
// and converting that to markdown.
type DocxEngine struct {
	fetch *fetcher
}

// NewDocxEngine creates a DocxEngine.
func NewDocxEngine(fetch *fetcher) *DocxEngine {
	return &DocxEngine{fetch: fetch}
}

func (e *DocxEngine) Name() string { return "docx" }

func (e *DocxEngine) Available() bool { return true }

func (e *DocxEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{MIMETypeDocx},
		Extensions: []string{".docx"},
		Priority:   60,
		Category:   "documents",
	}
}

func (e *DocxEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX package: %w", err)
	}

	rels, _ := ooxml.ParseRelationships(zr, "word/_rels/document.xml.rels")
	styles := parseDocxStyles(zr)

	docData, err := ooxml.ReadPart(zr, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read document.xml: %w", err)
	}

	htmlStr := docxToHTML(docData, rels, styles)
	md, err := convertHTMLToMarkdown(htmlStr)
	if err != nil {
		return nil, fmt.Errorf("convert DOCX to markdown: %w", err)
	}
	md = normalizeOutput(md)

	return &Result{Content: md, MIMEType: MIMETypeDocx}, nil
}

// parseDocxStyles maps styleId to the style's display name, used for
// heading detection.
func parseDocxStyles(zr *zip.Reader) map[string]string {
	styles := make(map[string]string)
	data, err := ooxml.ReadPart(zr, "word/styles.xml")
	if err != nil {
		return styles
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	var currentStyleID string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "style":
				for _, attr := range t.Attr {
					if attr.Name.Local == "styleId" {
						currentStyleID = attr.Value
					}
				}
			case "name":
				if currentStyleID != "" {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							styles[currentStyleID] = attr.Value
						}
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "style" {
				currentStyleID = ""
			}
		}
	}
	return styles
}

// docxToHTML walks document.xml token by token and emits HTML with
// headings, run formatting, hyperlinks, lists, and tables preserved.
func docxToHTML(docData []byte, rels map[string]ooxml.Relationship, styles map[string]string) string {
	decoder := xml.NewDecoder(bytes.NewReader(docData))

	type runState struct {
		inText    bool
		bold      bool
		italic    bool
		strike    bool
		hyperRef  string
		inHyper   bool
		styleID   string
		inList    bool
		listNumID string
	}

	var (
		s           runState
		textBuf     strings.Builder
		currentPara strings.Builder
		paragraphs  []string
		inTableCell bool
		cellContent strings.Builder
		currentRow  []string
		tableRows   [][]string
	)

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				currentPara.Reset()
				s.styleID = ""
				s.inList = false
				s.listNumID = ""
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						s.styleID = attr.Value
					}
				}
			case "numPr":
				s.inList = true
			case "numId":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						s.listNumID = attr.Value
					}
				}
			case "r":
				s.bold = false
				s.italic = false
				s.strike = false
			case "b":
				s.bold = true
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" && attr.Value == "0" {
						s.bold = false
					}
				}
			case "i":
				s.italic = true
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" && attr.Value == "0" {
						s.italic = false
					}
				}
			case "strike":
				s.strike = true
			case "t":
				s.inText = true
				textBuf.Reset()
			case "tab":
				currentPara.WriteString("\t")
			case "br":
				currentPara.WriteString("<br/>")
			case "hyperlink":
				s.inHyper = true
				for _, attr := range t.Attr {
					if attr.Name.Local == "id" {
						if rel, ok := rels[attr.Value]; ok {
							s.hyperRef = rel.Target
						}
					}
				}
			case "tbl":
				tableRows = nil
			case "tr":
				currentRow = nil
			case "tc":
				inTableCell = true
				cellContent.Reset()
			}

		case xml.CharData:
			if s.inText {
				textBuf.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				if s.inText {
					text := escapeHTMLText(textBuf.String())
					if s.bold {
						text = "<b>" + text + "</b>"
					}
					if s.italic {
						text = "<i>" + text + "</i>"
					}
					if s.strike {
						text = "<s>" + text + "</s>"
					}
					if s.inHyper && s.hyperRef != "" {
						text = `<a href="` + escapeHTMLAttr(s.hyperRef) + `">` + text + "</a>"
					}
					if inTableCell {
						cellContent.WriteString(text)
					} else {
						currentPara.WriteString(text)
					}
					s.inText = false
				}
			case "hyperlink":
				s.inHyper = false
				s.hyperRef = ""
			case "p":
				paraText := currentPara.String()
				if inTableCell {
					cellContent.WriteString(paraText)
					break
				}
				if level := docxHeadingLevel(s.styleID, styles); level > 0 {
					tag := fmt.Sprintf("h%d", level)
					paraText = "<" + tag + ">" + paraText + "</" + tag + ">"
				} else if s.inList && s.listNumID != "0" {
					paraText = "<li>" + paraText + "</li>"
				} else if paraText != "" {
					paraText = "<p>" + paraText + "</p>"
				}
				if paraText != "" {
					paragraphs = append(paragraphs, paraText)
				}
			case "tc":
				currentRow = append(currentRow, cellContent.String())
				inTableCell = false
			case "tr":
				tableRows = append(tableRows, currentRow)
			case "tbl":
				if len(tableRows) > 0 {
					paragraphs = append(paragraphs, renderHTMLTable(tableRows))
				}
			}
		}
	}

	var html strings.Builder
	html.WriteString("<html><body>")
	for _, p := range paragraphs {
		html.WriteString(p)
		html.WriteString("\n")
	}
	html.WriteString("</body></html>")
	return html.String()
}

// docxHeadingLevel returns the heading level (1-6) for a paragraph style,
// or 0 for body text.
func docxHeadingLevel(styleID string, styles map[string]string) int {
	if styleID == "" {
		return 0
	}
	lower := strings.ToLower(styleID)
	for i := 1; i <= 6; i++ {
		if lower == fmt.Sprintf("heading%d", i) || lower == fmt.Sprintf("heading %d", i) {
			return i
		}
	}
	if name, ok := styles[styleID]; ok {
		nameLower := strings.ToLower(name)
		for i := 1; i <= 6; i++ {
			if nameLower == fmt.Sprintf("heading %d", i) {
				return i
			}
		}
	}
	return 0
}

// renderHTMLTable renders rows of cells as an HTML table, first row as
// the header.
func renderHTMLTable(rows [][]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for i, row := range rows {
		b.WriteString("<tr>")
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		for _, cell := range row {
			b.WriteString("<" + tag + ">" + cell + "</" + tag + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

func escapeHTMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func escapeHTMLAttr(s string) string {
	s = escapeHTMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
