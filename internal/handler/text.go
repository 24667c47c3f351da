// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package handler

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/booklore-ai/booklore/internal/provider"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// Compile-time interface check.
var _ provider.DocumentHandler = (*TextHandler)(nil)

// chapterLine matches plain-text chapter headings like "Chapter 3" or
// "PART IV" at the start of a line.
var chapterLine = regexp.MustCompile(`(?i)^(chapter|part)\s+([0-9]+|[ivxlcdm]+)\b.*$`)

// authorLine matches an "Author: name" or "by name" line near the top of
// the document.
var authorLine = regexp.MustCompile(`(?i)^(author:|by)\s+(.+)$`)

// TextHandler processes plain text and markdown. Markdown H1 becomes the
// document title; H2 headings and plain-text "Chapter N" lines become
// chapter boundaries.
type TextHandler struct{}

// NewTextHandler returns the text document handler.
func NewTextHandler() *TextHandler { return &TextHandler{} }

func (h *TextHandler) Name() string                                      { return "text" }
func (h *TextHandler) Capability() provider.Capability                   { return provider.CapabilityDocumentHandler }
func (h *TextHandler) Initialize(context.Context, provider.Config) error { return nil }
func (h *TextHandler) Shutdown(context.Context) error                    { return nil }

func (h *TextHandler) Process(_ context.Context, content []byte, fileName string) (*provider.Document, error) {
	if !utf8.Valid(content) {
		return nil, blerr.Errorf(blerr.CodeHandlerParseFailure, "file %q is not valid UTF-8", fileName)
	}

	text := string(content)
	doc := &provider.Document{
		Metadata: provider.Metadata{Title: titleFromFileName(fileName)},
		FullText: text,
	}

	offset := 0
	headerScanned := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(trimmed, "# "):
			// The first H1 is the document title, later ones are chapters.
			title := strings.TrimSpace(trimmed[2:])
			if doc.Metadata.Title == titleFromFileName(fileName) && len(doc.Chapters) == 0 {
				doc.Metadata.Title = title
			} else {
				doc.Chapters = append(doc.Chapters, provider.Chapter{
					Title: title, Seq: len(doc.Chapters), Start: offset,
				})
			}
		case strings.HasPrefix(trimmed, "## "):
			doc.Chapters = append(doc.Chapters, provider.Chapter{
				Title: strings.TrimSpace(trimmed[3:]), Seq: len(doc.Chapters), Start: offset,
			})
		case chapterLine.MatchString(trimmed):
			doc.Chapters = append(doc.Chapters, provider.Chapter{
				Title: strings.TrimSpace(trimmed), Seq: len(doc.Chapters), Start: offset,
			})
		default:
			// Author lines are only honored in the first few lines, before
			// any chapter starts.
			if headerScanned < 5 && len(doc.Chapters) == 0 && doc.Metadata.Author == "" {
				if m := authorLine.FindStringSubmatch(trimmed); m != nil {
					doc.Metadata.Author = strings.TrimSpace(m[2])
				}
			}
		}

		if trimmed != "" {
			headerScanned++
		}
		offset += len(line)
	}

	return doc, nil
}
