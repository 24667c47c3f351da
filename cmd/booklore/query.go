// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/booklore-ai/booklore/internal/store"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Search the library",
		Long:  "Retrieve the passages most relevant to the question, without answer synthesis.",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of results (default from config)")
	cmd.Flags().StringP("document", "d", "", "restrict to a single document ID")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := wireApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx) //nolint:errcheck

	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = app.Config.Search.TopK
	}

	results, err := app.Querier.Query(ctx, args[0], topK, documentFilter(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(out, "[%d] %s (distance %.4f)\n", i+1, resultSource(r), r.Distance)
		fmt.Fprintln(out, snippet(r.Text, 240))
		fmt.Fprintln(out)
	}
	return nil
}

// documentFilter turns the --document flag into a metadata filter.
func documentFilter(cmd *cobra.Command) store.Filter {
	docID, _ := cmd.Flags().GetString("document")
	if docID == "" {
		return nil
	}
	return store.Filter{"document_id": docID}
}

// resultSource formats the provenance line for one search hit.
func resultSource(r store.SearchResult) string {
	title, _ := r.Metadata["title"].(string)
	chapter, _ := r.Metadata["chapter"].(string)
	if title == "" {
		title, _ = r.Metadata["file_name"].(string)
	}
	switch {
	case title != "" && chapter != "":
		return fmt.Sprintf("%s, %s", title, chapter)
	case title != "":
		return title
	default:
		return r.ID
	}
}

// snippet trims the text to one line of at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "…"
}
