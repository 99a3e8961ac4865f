package contentcore

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/nicholasgasior/contentcore-go/internal/ooxml"
)

// MIMETypeEpub is the EPUB MIME type.
const MIMETypeEpub = "application/epub+zip"

// EpubEngine extracts EPUB books: OPF metadata as a header block, then
// the spine chapters in reading order converted to markdown.
type EpubEngine struct {
	fetch *fetcher
}

// NewEpubEngine creates an EpubEngine.
func NewEpubEngine(fetch *fetcher) *EpubEngine {
	return &EpubEngine{fetch: fetch}
}

func (e *EpubEngine) Name() string { return "epub" }

func (e *EpubEngine) Available() bool { return true }

func (e *EpubEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{MIMETypeEpub},
		Extensions: []string{".epub"},
		Priority:   60,
		Category:   "documents",
	}
}

func (e *EpubEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open EPUB container: %w", err)
	}

	opfPath, err := findOPFPath(zr)
	if err != nil {
		return nil, fmt.Errorf("find OPF: %w", err)
	}

	meta, manifest, spine, err := parseOPF(zr, opfPath)
	if err != nil {
		return nil, fmt.Errorf("parse OPF: %w", err)
	}

	var md strings.Builder
	if meta.title != "" {
		fmt.Fprintf(&md, "# %s\n\n", meta.title)
	}
	if len(meta.authors) > 0 {
		fmt.Fprintf(&md, "**Authors:** %s\n\n", strings.Join(meta.authors, ", "))
	}
	if meta.language != "" {
		fmt.Fprintf(&md, "**Language:** %s\n\n", meta.language)
	}
	if meta.publisher != "" {
		fmt.Fprintf(&md, "**Publisher:** %s\n\n", meta.publisher)
	}
	if meta.date != "" {
		fmt.Fprintf(&md, "**Date:** %s\n\n", meta.date)
	}
	if meta.description != "" {
		fmt.Fprintf(&md, "**Description:** %s\n\n", meta.description)
	}

	opfDir := path.Dir(opfPath)
	for _, itemRef := range spine {
		item, ok := manifest[itemRef]
		if !ok {
			continue
		}

		filePath := item.href
		if opfDir != "." && !strings.HasPrefix(filePath, "/") {
			filePath = opfDir + "/" + filePath
		}

		fileData, err := ooxml.ReadPart(zr, filePath)
		if err != nil {
			continue
		}

		ext := strings.ToLower(path.Ext(filePath))
		isHTML := ext == ".html" || ext == ".htm" || ext == ".xhtml" ||
			strings.Contains(item.mediaType, "html") || strings.Contains(item.mediaType, "xhtml")
		if !isHTML {
			continue
		}

		chapter, err := convertHTMLToMarkdown(removeScriptAndStyle(string(fileData)))
		if err != nil || strings.TrimSpace(chapter) == "" {
			continue
		}
		md.WriteString(chapter)
		md.WriteString("\n\n")
	}

	metadata := map[string]any{}
	if meta.title != "" {
		metadata["title"] = meta.title
	}
	if len(meta.authors) > 0 {
		metadata["authors"] = meta.authors
	}

	return &Result{
		Content:  normalizeOutput(md.String()),
		MIMEType: MIMETypeEpub,
		Metadata: metadata,
	}, nil
}

type epubMetadata struct {
	title       string
	authors     []string
	language    string
	publisher   string
	date        string
	description string
	identifier  string
}

type manifestItem struct {
	id        string
	href      string
	mediaType string
}

// findOPFPath finds the OPF file path from META-INF/container.xml.
func findOPFPath(zr *zip.Reader) (string, error) {
	data, err := ooxml.ReadPart(zr, "META-INF/container.xml")
	if err != nil {
		return "", err
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "rootfile" {
			for _, attr := range se.Attr {
				if attr.Name.Local == "full-path" {
					return attr.Value, nil
				}
			}
		}
	}
	return "", fmt.Errorf("rootfile not found in container.xml")
}

// parseOPF parses the OPF file for metadata, manifest, and spine.
func parseOPF(zr *zip.Reader, opfPath string) (epubMetadata, map[string]manifestItem, []string, error) {
	data, err := ooxml.ReadPart(zr, opfPath)
	if err != nil {
		return epubMetadata{}, nil, nil, err
	}

	var meta epubMetadata
	manifest := make(map[string]manifestItem)
	var spine []string

	decoder := xml.NewDecoder(bytes.NewReader(data))

	var inMetadata bool
	var currentTag string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "metadata":
				inMetadata = true
			case "title", "creator", "language", "publisher", "date", "description", "identifier":
				if inMetadata {
					currentTag = t.Name.Local
				}
			case "item":
				var item manifestItem
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "id":
						item.id = attr.Value
					case "href":
						item.href = attr.Value
					case "media-type":
						item.mediaType = attr.Value
					}
				}
				if item.id != "" {
					manifest[item.id] = item
				}
			case "itemref":
				for _, attr := range t.Attr {
					if attr.Name.Local == "idref" {
						spine = append(spine, attr.Value)
					}
				}
			}

		case xml.CharData:
			if inMetadata {
				text := strings.TrimSpace(string(t))
				switch currentTag {
				case "title":
					meta.title = text
				case "creator":
					if text != "" {
						meta.authors = append(meta.authors, text)
					}
				case "language":
					meta.language = text
				case "publisher":
					meta.publisher = text
				case "date":
					meta.date = text
				case "description":
					meta.description = text
				case "identifier":
					meta.identifier = text
				}
			}

		case xml.EndElement:
			if t.Name.Local == "metadata" {
				inMetadata = false
			}
			currentTag = ""
		}
	}

	return meta, manifest, spine, nil
}
