// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package handler

import (
	"bytes"
	"context"
	"io"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Compile-time interface check.
var _ provider.DocumentHandler = (*PDFHandler)(nil)

// PDFHandler extracts plain text from PDF files. PDFs carry no reliable
// chapter structure, so the output has no chapter boundaries.
type PDFHandler struct{}

// NewPDFHandler returns the PDF document handler.
func NewPDFHandler() *PDFHandler { return &PDFHandler{} }

func (h *PDFHandler) Name() string                                      { return "pdf" }
func (h *PDFHandler) Capability() provider.Capability                   { return provider.CapabilityDocumentHandler }
func (h *PDFHandler) Initialize(context.Context, provider.Config) error { return nil }
func (h *PDFHandler) Shutdown(context.Context) error                    { return nil }

func (h *PDFHandler) Process(_ context.Context, content []byte, fileName string) (*provider.Document, error) {
	if len(content) == 0 {
		return nil, blerr.Errorf(blerr.CodeHandlerParseFailure, "file %q is empty", fileName)
	}

	text := extractPDFText(content)
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, blerr.Errorf(blerr.CodeHandlerParseFailure, "no extractable text in %q", fileName)
	}

	return &provider.Document{
		Metadata: provider.Metadata{Title: titleFromFileName(fileName)},
		FullText: string(text),
	}, nil
}

// extractPDFText extracts the document's plain text, falling back to a
// printable-rune scan when the file is damaged enough that the reader
// rejects it.
func extractPDFText(data []byte) []byte {
	if r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		if reader, err := r.GetPlainText(); err == nil {
			if out, err := io.ReadAll(reader); err == nil && len(out) > 0 {
				return out
			}
		}
	}
	return extractPrintableText(data)
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; b == '\n' || b == '\t' || (b >= 32 && b < 127) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if r == '\n' || r == '\t' || r >= 32 {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}
