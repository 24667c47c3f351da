// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "booklore")
	assert.Contains(t, buf.String(), "ingest")
	assert.Contains(t, buf.String(), "query")
	assert.Contains(t, buf.String(), "ask")
	assert.Contains(t, buf.String(), "documents")
	assert.Contains(t, buf.String(), "version")
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "booklore")
}

func TestIngestCommand_RequiresArgs(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"ingest"})

	err := root.Execute()
	assert.Error(t, err)
}

func TestQueryCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"query", "--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "top-k")
	assert.Contains(t, buf.String(), "document")
}

func TestAskCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"ask", "--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "top-k")
	assert.Contains(t, buf.String(), "model")
}

func TestDocumentsCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"documents", "--help"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "list")
	assert.Contains(t, buf.String(), "status")
	assert.Contains(t, buf.String(), "delete")
}

func TestDocumentsList_EmptyMemoryBackend(t *testing.T) {
	t.Setenv("BOOKLORE_STORAGE_BACKEND", "memory")

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"documents", "list"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No documents ingested.")
}

// Keep this test last: pointing the global Viper at a bad config file
// sticks for the rest of the process.
func TestCommand_RejectsMissingConfigFile(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version", "--config", "/nonexistent/booklore.yaml"})

	err := root.Execute()
	assert.Error(t, err)
}
