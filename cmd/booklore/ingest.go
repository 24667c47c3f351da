// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	blerr "github.com/booklore-ai/booklore/pkg/errors"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents into the library",
		Long:  "Parse, chunk, and embed the given files so they become searchable. Re-ingesting a file replaces its previous chunks.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := wireApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx) //nolint:errcheck

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return blerr.Errorf(blerr.CodeCLIInputInvalid, "reading %s: %w", path, err)
		}

		doc, err := app.Ingestor.Ingest(ctx, content, filepath.Base(path))
		if err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", path, err)
			failed++
			continue
		}

		label := doc.FileName
		if doc.Title != "" {
			label = doc.Title
		}
		fmt.Fprintf(out, "%s: %d chunks (document %s)\n", label, doc.ChunkCount, doc.ID)
	}

	if failed > 0 {
		return blerr.Errorf(blerr.CodeIngestDocumentFailure, "%d of %d documents failed", failed, len(args))
	}
	return nil
}
