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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// MIMETypeXlsx is the Excel workbook MIME type.
const MIMETypeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MIMETypeXls is the legacy Excel workbook MIME type.
const MIMETypeXls = "application/vnd.ms-excel"

// XlsxEngine extracts Excel workbooks, one markdown table per sheet.
type XlsxEngine struct {
	fetch *fetcher
}

// NewXlsxEngine creates an XlsxEngine.
func NewXlsxEngine(fetch *fetcher) *XlsxEngine {
	return &XlsxEngine{fetch: fetch}
}

func (e *XlsxEngine) Name() string { return "xlsx" }

func (e *XlsxEngine) Available() bool { return true }

func (e *XlsxEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{MIMETypeXlsx},
		Extensions: []string{".xlsx"},
		Priority:   60,
		Category:   "documents",
	}
}

func (e *XlsxEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	var md strings.Builder
	sheets := f.GetSheetList()

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintf(&md, "## %s\n", sheet)
		md.WriteString(renderMarkdownTable(rows))
		md.WriteString("\n")
	}

	return &Result{
		Content:  md.String(),
		MIMEType: MIMETypeXlsx,
		Metadata: map[string]any{"sheets": len(sheets)},
	}, nil
}

// XlsEngine extracts legacy Excel workbooks.
type XlsEngine struct {
	fetch *fetcher
}

// NewXlsEngine creates an XlsEngine.
func NewXlsEngine(fetch *fetcher) *XlsEngine {
	return &XlsEngine{fetch: fetch}
}

func (e *XlsEngine) Name() string { return "xls" }

func (e *XlsEngine) Available() bool { return true }

func (e *XlsEngine) Capabilities() Capabilities {
	return Capabilities{
		MIMETypes:  []string{MIMETypeXls},
		Extensions: []string{".xls"},
		Priority:   60,
		Category:   "documents",
	}
}

func (e *XlsEngine) Extract(ctx context.Context, source Source, options Options) (*Result, error) {
	data, err := readSource(ctx, source, e.fetch)
	if err != nil {
		return nil, err
	}

	// extrame/xls requires a file path, so stage the data in a temp file
	tmpFile, err := os.CreateTemp("", "contentcore-*.xls")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmpFile.Close()

	wb, err := xls.Open(tmpPath, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open XLS: %w", err)
	}

	var md strings.Builder
	numSheets := wb.NumSheets()

	for i := 0; i < numSheets; i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		var rows [][]string
		maxRow := int(sheet.MaxRow)
		for rowIdx := 0; rowIdx <= maxRow; rowIdx++ {
			row := sheet.Row(rowIdx)
			if row == nil {
				continue
			}

			var cells []string
			lastCol := row.LastCol()
			for colIdx := 0; colIdx < lastCol; colIdx++ {
				cells = append(cells, row.Col(colIdx))
			}
			rows = append(rows, cells)
		}

		if len(rows) == 0 {
			continue
		}

		fmt.Fprintf(&md, "## %s\n", sheetName)
		md.WriteString(renderMarkdownTable(rows))
		md.WriteString("\n")
	}

	return &Result{
		Content:  md.String(),
		MIMEType: MIMETypeXls,
		Metadata: map[string]any{"sheets": numSheets},
	}, nil
}
