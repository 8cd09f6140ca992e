package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextStore(t *testing.T) {
	store := NewContextStore(filepath.Join(t.TempDir(), "nested", "contexts.yaml"))

	ctx, name, err := store.Current()
	require.NoError(t, err)
	assert.Nil(t, ctx)
	assert.Empty(t, name)

	require.NoError(t, store.Add("aws:prod", &Context{Provider: ProviderAWS, Profile: "prod", Region: "us-east-1"}))
	require.NoError(t, store.Add("gcp:dev", &Context{Provider: ProviderGCP, Project: "acme-dev"}))
	require.NoError(t, store.SetCurrent("aws:prod"))

	ctx, name, err = store.Current()
	require.NoError(t, err)
	assert.Equal(t, "aws:prod", name)
	assert.Equal(t, "prod", ctx.Profile)

	_, names, current, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"aws:prod", "gcp:dev"}, names)
	assert.Equal(t, "aws:prod", current)

	require.NoError(t, store.Delete("aws:prod"))
	ctx, name, err = store.Current()
	require.NoError(t, err)
	assert.Nil(t, ctx)
	assert.Empty(t, name)
}

func TestContextStoreErrors(t *testing.T) {
	store := NewContextStore(filepath.Join(t.TempDir(), "contexts.yaml"))

	assert.Error(t, store.SetCurrent("missing"))
	assert.Error(t, store.Delete("missing"))
	assert.Error(t, store.Add("aws:x", &Context{Provider: ProviderAWS}))
	assert.Error(t, store.Add("gcp:x", &Context{Provider: ProviderGCP}))
	assert.Error(t, store.Add("azure:x", &Context{Provider: "azure"}))
}

func TestParseContextName(t *testing.T) {
	provider, name := ParseContextName("aws:prod")
	assert.Equal(t, "aws", provider)
	assert.Equal(t, "prod", name)

	provider, name = ParseContextName("dev")
	assert.Empty(t, provider)
	assert.Equal(t, "dev", name)
}
