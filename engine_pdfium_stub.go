//go:build !pdfium

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

import "context"

// PDFiumEngine is the stub compiled without the pdfium build tag. It
// reports itself unavailable so registration skips it and resolution
// falls through to the pure-Go pdf engine.
type PDFiumEngine struct{}

// NewPDFiumEngine creates the unavailable stub.
func NewPDFiumEngine(fetch *fetcher) *PDFiumEngine {
	return &PDFiumEngine{}
}

func (e *PDFiumEngine) Name() string { return "pdfium" }

func (e *PDFiumEngine) Available() bool { return false }

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
	return nil, &ProcessorUnavailableError{Name: "pdfium", Requires: []string{"pdfium-wasm"}}
}
