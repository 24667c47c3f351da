// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package chunker_test

import (
	"strings"
	"testing"

	"github.com/booklore-ai/booklore/internal/chunker"
	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chunker.New(tt.size, tt.overlap)
			require.Error(t, err)
			assert.True(t, blerr.HasCode(err, blerr.CodeChunkConfigInvalid))
		})
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	c, err := chunker.New(100, 20)
	require.NoError(t, err)

	text := "A short paragraph that fits in one window."
	pieces := c.Split(text)

	require.Len(t, pieces, 1)
	assert.Equal(t, text, pieces[0].Text)
	assert.Equal(t, 0, pieces[0].Start)
}

func TestSplitEmptyText(t *testing.T) {
	c, err := chunker.New(100, 20)
	require.NoError(t, err)
	assert.Empty(t, c.Split(""))
}

func TestSplitCoversTextWithoutGaps(t *testing.T) {
	c, err := chunker.New(120, 30)
	require.NoError(t, err)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	text = strings.TrimSpace(text)
	pieces := c.Split(text)
	require.Greater(t, len(pieces), 1)

	for i, p := range pieces {
		assert.LessOrEqual(t, len(p.Text), 120, "chunk %d exceeds size", i)
		assert.Equal(t, text[p.Start:p.Start+len(p.Text)], p.Text)

		if i == 0 {
			assert.Equal(t, 0, p.Start)
			continue
		}
		prev := pieces[i-1]
		prevEnd := prev.Start + len(prev.Text)
		assert.LessOrEqual(t, p.Start, prevEnd, "gap before chunk %d", i)
		assert.Greater(t, p.Start, prev.Start, "cursor did not advance at chunk %d", i)
		assert.LessOrEqual(t, prevEnd-p.Start, 30, "overlap exceeds limit at chunk %d", i)
	}

	last := pieces[len(pieces)-1]
	assert.Equal(t, len(text), last.Start+len(last.Text), "text not fully covered")
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	c, err := chunker.New(80, 10)
	require.NoError(t, err)

	// The sentence end falls past the window midpoint, so the first chunk
	// should stop just after ". " rather than cutting mid-word.
	text := "This is the first sentence of the document. " +
		"This second sentence continues well beyond the first window boundary for sure."
	pieces := c.Split(text)

	require.Greater(t, len(pieces), 1)
	assert.True(t, strings.HasSuffix(pieces[0].Text, ". "), "got %q", pieces[0].Text)
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	c, err := chunker.New(100, 10)
	require.NoError(t, err)

	text := "First paragraph with enough text to pass the window midpoint easily.\n\n" +
		"Second paragraph continues the document with more prose than one window holds."
	pieces := c.Split(text)

	require.Greater(t, len(pieces), 1)
	assert.True(t, strings.HasSuffix(pieces[0].Text, "\n\n"), "got %q", pieces[0].Text)
}

func TestSplitHardCutsWithoutBoundary(t *testing.T) {
	c, err := chunker.New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("x", 200)
	pieces := c.Split(text)

	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.Text), 50)
	}
	assert.Len(t, pieces[0].Text, 50)
}

func TestSplitRejectsEarlyBoundary(t *testing.T) {
	c, err := chunker.New(60, 10)
	require.NoError(t, err)

	// Only boundary is well before the midpoint; splitting there would
	// yield a degenerate chunk, so the window must be cut hard instead.
	text := "Ok. " + strings.Repeat("y", 150)
	pieces := c.Split(text)

	require.Greater(t, len(pieces), 1)
	assert.Len(t, pieces[0].Text, 60)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces", "a   b\t c", "a b c"},
		{"keeps paragraph break", "one\n\ntwo", "one\n\ntwo"},
		{"collapses blank runs", "one\n\n\n  \n two", "one\n\ntwo"},
		{"single newline becomes space", "one\ntwo", "one two"},
		{"trims", "  padded  ", "padded"},
		{"nfkc folds fullwidth", "ｆｕｌｌ", "full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunker.Normalize(tt.in))
		})
	}
}
