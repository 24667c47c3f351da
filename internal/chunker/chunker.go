// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package chunker splits normalized text into overlapping, boundary-aware
// chunks sized for embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// separators, in preference order. The splitter searches backward from the
// window end and takes the highest-ranked boundary past the midpoint.
var separators = []string{"\n\n", ". ", "! ", "? ", "; ", ", "}

var (
	paragraphRe  = regexp.MustCompile(`\n\s*\n\s*`)
	whitespaceRe = regexp.MustCompile(`[ \t\r\f]+`)
	newlineRe    = regexp.MustCompile(`[ ]*\n[ ]*`)
)

// Normalize applies NFKC unicode normalization and collapses whitespace.
// Paragraph breaks survive as a single "\n\n" so the splitter can prefer
// them as boundaries; all other whitespace runs become one space.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = paragraphRe.ReplaceAllString(text, "\x00")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = newlineRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\x00", "\n\n")
	return strings.TrimSpace(text)
}

// Piece is one emitted chunk with its byte offset into the input text.
type Piece struct {
	Text  string
	Start int
}

// Chunker splits text into chunks of at most Size bytes with Overlap bytes
// shared between consecutive chunks.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. overlap must be smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, blerr.Errorf(blerr.CodeChunkConfigInvalid, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, blerr.Errorf(blerr.CodeChunkConfigInvalid,
			"overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks text. Text at most one window long comes back as a single
// piece. A boundary is accepted only at or past the window midpoint, so a
// run of early punctuation cannot produce degenerate tiny chunks; when no
// boundary qualifies the window is cut hard at the size limit.
func (c *Chunker) Split(text string) []Piece {
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []Piece{{Text: text, Start: 0}}
	}

	var pieces []Piece
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else if cut, ok := c.boundary(text[start:end]); ok {
			end = start + cut
		}

		pieces = append(pieces, Piece{Text: text[start:end], Start: start})

		if end >= len(text) {
			break
		}

		next := end - c.overlap
		if next <= start {
			// Overlap would stall the cursor; give up the overlap for
			// this step rather than loop forever.
			next = end
		}
		start = next
	}

	return pieces
}

// boundary searches window backward for the best separator past the
// midpoint and returns the cut position just after it.
func (c *Chunker) boundary(window string) (int, bool) {
	mid := c.size / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > mid {
			return idx + len(sep), true
		}
	}
	return 0, false
}
