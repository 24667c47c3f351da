// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

// Package handler implements the document_handler providers that turn raw
// file bytes into chunk-ready text with chapter boundaries.
package handler

import (
	"path/filepath"
	"strings"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
)

// ProviderFor maps a file name to the document handler provider that can
// process it.
func ProviderFor(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".markdown":
		return "text", nil
	case ".pdf":
		return "pdf", nil
	default:
		return "", blerr.Errorf(blerr.CodeHandlerTypeUnsupported,
			"no document handler for file %q", fileName)
	}
}

// titleFromFileName derives a fallback document title from the base file
// name, with the extension stripped and separators spaced.
func titleFromFileName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
