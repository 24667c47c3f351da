// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BookLore Contributors

package builtin_test

import (
	"testing"

	"github.com/booklore-ai/booklore/internal/provider"
	"github.com/booklore-ai/booklore/internal/provider/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorsRegisterCleanly(t *testing.T) {
	r := provider.NewRegistry(nil)
	require.NoError(t, r.Discover(builtin.Descriptors()))
	assert.Len(t, r.Descriptors(), len(builtin.Descriptors()))
}

func TestDescriptorsMatchConstructedProviders(t *testing.T) {
	for _, desc := range builtin.Descriptors() {
		p := desc.New()
		assert.Equal(t, desc.Name, p.Name(), "descriptor %s/%s", desc.Capability, desc.Name)
		assert.Equal(t, desc.Capability, p.Capability(), "descriptor %s/%s", desc.Capability, desc.Name)
	}
}

func TestEveryCapabilityCovered(t *testing.T) {
	seen := map[provider.Capability]bool{}
	for _, desc := range builtin.Descriptors() {
		seen[desc.Capability] = true
	}
	for _, c := range []provider.Capability{
		provider.CapabilityLLM,
		provider.CapabilityEmbedder,
		provider.CapabilityVectorStore,
		provider.CapabilityDocumentHandler,
		provider.CapabilityGraphStore,
	} {
		assert.True(t, seen[c], "no builtin provider for capability %s", c)
	}
}
