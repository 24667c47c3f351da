// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"fmt"

	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about your library",
		Long:  "Retrieve relevant passages and have the configured LLM answer from them, citing its sources.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of passages to ground on (default from config)")
	cmd.Flags().StringP("document", "d", "", "restrict to a single document ID")
	cmd.Flags().StringP("model", "m", "", "model override")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := wireApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx) //nolint:errcheck

	cfg := app.Config
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = cfg.LLM.Model
	}

	llm, err := app.Registry.LLM(ctx, cfg.LLM.Provider,
		cfg.ProviderSettings(cfg.LLM.Provider, model))
	if err != nil {
		return err
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = cfg.Search.TopK
	}

	req := provider.GenerateRequest{
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	out := cmd.OutOrStdout()
	answer, err := app.Querier.AskStream(ctx, llm, req, args[0], topK, documentFilter(cmd),
		func(delta string) { fmt.Fprint(out, delta) })
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, r := range answer.Sources {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, resultSource(r))
		}
	}
	return nil
}
