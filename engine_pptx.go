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
	"math"
	"sort"
	"strings"

	"github.com/nicholasgasior/contentcore-go/internal/ooxml"
)

// MIMETypePptx is the PowerPoint presentation MIME type.
const MIMETypePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// PptxEngine extracts PowerPoint presentations slide by slide: titles
// become headings, shapes are ordered top-to-bottom, speaker notes are
// appended per slide.
type PptxEngine struct {
	fetch *fetcher
}

// NewPptxEngine creates a PptxEngine.
func NewPptxEngine(fetch *fetcher) *PptxEngine {
	return &PptxEngine{fetch: fetch}
}

func (e *PptxEngine) Name() string { return "pptx" }

func (e *PptxEngine) Available() bool { return true }

func (e *PptxEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{MIMETypePptx},
		Extensions: []string{".pptx"},
		Priority:   60,
		Category:   "documents",
	}
}

func (e *PptxEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PPTX package: %w", err)
	}

	slidePaths, err := slideOrder(zr)
	if err != nil {
		return nil, fmt.Errorf("read slide order: %w", err)
	}

	var md strings.Builder
	for slideNum, slidePath := range slidePaths {
		md.WriteString(fmt.Sprintf("\n\n<!-- Slide number: %d -->\n", slideNum+1))

		slideData, err := ooxml.ReadPart(zr, slidePath)
		if err != nil {
			continue
		}
		md.WriteString(renderSlide(slideData))

		if notesPath := notesPathFor(slidePath, zr); notesPath != "" {
			notesData, err := ooxml.ReadPart(zr, notesPath)
			if err == nil {
				notes := strings.TrimSpace(notesText(notesData))
				if notes != "" {
					md.WriteString("\n\n### Notes:\n")
					md.WriteString(notes)
				}
			}
		}
	}

	return &Result{
		Content:  strings.TrimSpace(md.String()),
		MIMEType: MIMETypePptx,
		Metadata: map[string]any{"slides": len(slidePaths)},
	}, nil
}

// slideOrder returns slide part paths in presentation order, falling back
// to lexical order of ppt/slides/ when presentation.xml is unusable.
func slideOrder(zr *zip.Reader) ([]string, error) {
	presData, err := ooxml.ReadPart(zr, "ppt/presentation.xml")
	if err != nil {
		return nil, err
	}

	rels, _ := ooxml.ParseRelationships(zr, "ppt/_rels/presentation.xml.rels")

	decoder := xml.NewDecoder(bytes.NewReader(presData))
	var slideRIDs []string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sldId" {
			for _, attr := range se.Attr {
				if attr.Name.Local == "id" && strings.Contains(attr.Name.Space, "relationships") {
					slideRIDs = append(slideRIDs, attr.Value)
				}
			}
		}
	}

	var slidePaths []string
	for _, rid := range slideRIDs {
		if rel, ok := rels[rid]; ok {
			slidePaths = append(slidePaths, ooxml.ResolveTarget("ppt/presentation.xml", rel.Target))
		}
	}
	if len(slidePaths) == 0 {
		for _, name := range ooxml.ListParts(zr, "ppt/slides/slide") {
			if strings.HasSuffix(name, ".xml") {
				slidePaths = append(slidePaths, name)
			}
		}
		sort.Strings(slidePaths)
	}
	return slidePaths, nil
}

// pptxShape is one visual element on a slide.
type pptxShape struct {
	top     int64
	left    int64
	text    string
	isTitle bool
	table   [][]string
	altText string
}

// renderSlide extracts a slide's shapes and formats them as markdown in
// top-to-bottom, left-to-right order.
func renderSlide(slideData []byte) string {
	var root xmlNode
	if err := xml.Unmarshal(slideData, &root); err != nil {
		return ""
	}

	var shapes []pptxShape
	collectShapes(&root, &shapes)

	sort.SliceStable(shapes, func(i, j int) bool {
		if shapes[i].top != shapes[j].top {
			return shapes[i].top < shapes[j].top
		}
		return shapes[i].left < shapes[j].left
	})

	var md strings.Builder
	for _, shape := range shapes {
		switch {
		case shape.altText != "":
			md.WriteString(fmt.Sprintf("\n![%s](image)\n", sanitizeAltText(shape.altText)))
		case len(shape.table) > 0:
			md.WriteString(renderMarkdownTable(shape.table))
		case shape.isTitle:
			if text := strings.TrimSpace(shape.text); text != "" {
				md.WriteString("# " + text + "\n")
			}
		case shape.text != "":
			md.WriteString(shape.text + "\n")
		}
	}
	return md.String()
}

// sanitizeAltText cleans alt text for markdown image syntax.
func sanitizeAltText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "[", " ")
	s = strings.ReplaceAll(s, "]", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// xmlNode is a generic XML tree node.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
	Content  string     `xml:",chardata"`
}

func (n *xmlNode) getAttr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *xmlNode) findChild(local string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			return &n.Children[i]
		}
	}
	return nil
}

func (n *xmlNode) findAll(local string) []*xmlNode {
	var result []*xmlNode
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			result = append(result, &n.Children[i])
		}
	}
	return result
}

// findDeep finds the first descendant with the given local name.
func (n *xmlNode) findDeep(local string) *xmlNode {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			return &n.Children[i]
		}
		if found := n.Children[i].findDeep(local); found != nil {
			return found
		}
	}
	return nil
}

// findAllDeep finds all descendants with the given local name.
func (n *xmlNode) findAllDeep(local string) []*xmlNode {
	var result []*xmlNode
	for i := range n.Children {
		if n.Children[i].XMLName.Local == local {
			result = append(result, &n.Children[i])
		}
		result = append(result, n.Children[i].findAllDeep(local)...)
	}
	return result
}

// allText extracts all text content recursively.
func (n *xmlNode) allText() string {
	if n.Content != "" {
		return n.Content
	}
	var parts []string
	for i := range n.Children {
		if t := n.Children[i].allText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "")
}

// collectShapes walks the slide tree and extracts shapes.
func collectShapes(node *xmlNode, shapes *[]pptxShape) {
	switch node.XMLName.Local {
	case "sp":
		if shape := textShape(node); shape != nil {
			*shapes = append(*shapes, *shape)
		}
	case "pic":
		if shape := picShape(node); shape != nil {
			*shapes = append(*shapes, *shape)
		}
	case "graphicFrame":
		if shape := tableShape(node); shape != nil {
			*shapes = append(*shapes, *shape)
		}
	default:
		for i := range node.Children {
			collectShapes(&node.Children[i], shapes)
		}
	}
}

func textShape(node *xmlNode) *pptxShape {
	shape := &pptxShape{top: math.MaxInt64, left: math.MaxInt64}

	if nvSpPr := node.findChild("nvSpPr"); nvSpPr != nil {
		if nvPr := nvSpPr.findChild("nvPr"); nvPr != nil {
			if ph := nvPr.findChild("ph"); ph != nil {
				phType := ph.getAttr("type")
				shape.isTitle = phType == "title" || phType == "ctrTitle"
			}
		}
	}

	shapePosition(node, shape)

	if txBody := node.findChild("txBody"); txBody != nil {
		shape.text = txBodyText(txBody)
	}
	if strings.TrimSpace(shape.text) == "" {
		return nil
	}
	return shape
}

func picShape(node *xmlNode) *pptxShape {
	shape := &pptxShape{top: math.MaxInt64, left: math.MaxInt64}

	if nvPicPr := node.findChild("nvPicPr"); nvPicPr != nil {
		if cNvPr := nvPicPr.findChild("cNvPr"); cNvPr != nil {
			shape.altText = cNvPr.getAttr("descr")
		}
	}

	shapePosition(node, shape)

	if shape.altText == "" {
		return nil
	}
	return shape
}

func tableShape(node *xmlNode) *pptxShape {
	shape := &pptxShape{top: math.MaxInt64, left: math.MaxInt64}
	shapePosition(node, shape)

	tbl := node.findDeep("tbl")
	if tbl == nil {
		return nil
	}
	for _, tr := range tbl.findAll("tr") {
		var row []string
		for _, tc := range tr.findAll("tc") {
			if txBody := tc.findChild("txBody"); txBody != nil {
				row = append(row, strings.TrimSpace(txBodyText(txBody)))
			} else {
				row = append(row, "")
			}
		}
		shape.table = append(shape.table, row)
	}
	if len(shape.table) == 0 {
		return nil
	}
	return shape
}

// shapePosition reads the shape offset from spPr/xfrm/off.
func shapePosition(node *xmlNode, shape *pptxShape) {
	spPr := node.findChild("spPr")
	if spPr == nil {
		return
	}
	xfrm := spPr.findChild("xfrm")
	if xfrm == nil {
		return
	}
	off := xfrm.findChild("off")
	if off == nil {
		return
	}
	if x := off.getAttr("x"); x != "" {
		fmt.Sscanf(x, "%d", &shape.left)
	}
	if y := off.getAttr("y"); y != "" {
		fmt.Sscanf(y, "%d", &shape.top)
	}
}

// txBodyText extracts text from a txBody element, one line per paragraph.
func txBodyText(txBody *xmlNode) string {
	var parts []string
	for _, p := range txBody.findAll("p") {
		var lineText []string
		for _, r := range p.findAllDeep("t") {
			if t := r.allText(); t != "" {
				lineText = append(lineText, t)
			}
		}
		if len(lineText) > 0 {
			parts = append(parts, strings.Join(lineText, ""))
		}
	}
	return strings.Join(parts, "\n")
}

// notesPathFor returns the notes slide part for a slide, or "".
func notesPathFor(slidePath string, zr *zip.Reader) string {
	rels, err := ooxml.ParseRelationships(zr, ooxml.RelsPathFor(slidePath))
	if err != nil {
		return ""
	}
	for _, rel := range rels {
		if strings.Contains(rel.Type, "notesSlide") {
			return ooxml.ResolveTarget(slidePath, rel.Target)
		}
	}
	return ""
}

// notesText extracts text content from a notes slide.
func notesText(data []byte) string {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return ""
	}
	var parts []string
	for _, txBody := range root.findAllDeep("txBody") {
		if text := strings.TrimSpace(txBodyText(txBody)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
