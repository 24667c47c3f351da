// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/booklore-ai/booklore/internal/config"
	"github.com/booklore-ai/booklore/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage ingested documents",
	}

	cmd.AddCommand(
		newDocumentsListCmd(),
		newDocumentsStatusCmd(),
		newDocumentsDeleteCmd(),
	)

	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			documents, closeFn, err := catalogFromConfig()
			if err != nil {
				return err
			}
			defer closeFn()

			docs, err := documents.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No documents ingested.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCHUNKS\tFILE")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Status, d.ChunkCount, d.FileName)
			}
			return w.Flush()
		},
	}
}

func newDocumentsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the ingestion status of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documents, closeFn, err := catalogFromConfig()
			if err != nil {
				return err
			}
			defer closeFn()

			doc, err := documents.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", doc.ID)
			fmt.Fprintf(out, "File:     %s\n", doc.FileName)
			if doc.Title != "" {
				fmt.Fprintf(out, "Title:    %s\n", doc.Title)
			}
			if doc.Author != "" {
				fmt.Fprintf(out, "Author:   %s\n", doc.Author)
			}
			fmt.Fprintf(out, "Status:   %s\n", doc.Status)
			if doc.Message != "" {
				fmt.Fprintf(out, "Message:  %s\n", doc.Message)
			}
			fmt.Fprintf(out, "Chunks:   %d\n", doc.ChunkCount)
			fmt.Fprintf(out, "Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := wireApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close(ctx) //nolint:errcheck

			docID := args[0]
			if _, err := app.Documents.GetDocument(ctx, docID); err != nil {
				return err
			}

			// Chunks first, so a failure leaves the record visible.
			if err := app.Ingestor.DeleteChunks(ctx, docID); err != nil {
				return err
			}
			if err := app.Documents.DeleteDocument(ctx, docID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", docID)
			return nil
		},
	}
}

// catalogFromConfig opens only the document catalog; listing and status
// never need providers or embeddings wired.
func catalogFromConfig() (store.DocumentStore, func(), error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	documents, closer, err := openDocumentStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return documents, closeFn, nil
}
