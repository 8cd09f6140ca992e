package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	base := t.TempDir()
	v := New()
	v.Set(KeyBaseDir, base)

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "template"), s.TemplateDir)
	assert.Equal(t, filepath.Join(base, "clusters"), s.ClustersDir)
	assert.Equal(t, filepath.Join(base, "playbooks"), s.PlaybookDir)
	assert.Equal(t, "terraform", s.TerraformBin)
	assert.Equal(t, 30*time.Second, s.ReadinessTimeout)
	assert.Equal(t, 500*time.Millisecond, s.ReadinessInterval)
	assert.Equal(t, 30*time.Minute, s.ToolTimeout)
	assert.Equal(t, ".tf", s.ReadinessExt)
	assert.True(t, s.DestroyOnFailedCreate)
	assert.Equal(t, "front.yml", s.Pods["front"])
	assert.Equal(t, ":8000", s.Addr)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cirrus.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
base_dir: /srv/cirrus
clusters_dir: /var/lib/clusters
readiness_timeout: 2m
tool_timeout: 45m
destroy_on_failed_create: false
pods:
  api: playbooks/api.yml
`), 0o644))

	v := New()
	require.NoError(t, ReadConfigFile(v, file))
	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/cirrus", s.BaseDir)
	assert.Equal(t, "/srv/cirrus/template", s.TemplateDir)
	assert.Equal(t, "/var/lib/clusters", s.ClustersDir)
	assert.Equal(t, 2*time.Minute, s.ReadinessTimeout)
	assert.Equal(t, 45*time.Minute, s.ToolTimeout)
	assert.False(t, s.DestroyOnFailedCreate)
	assert.Equal(t, "playbooks/api.yml", s.Pods["api"])
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CIRRUS_TOOL_TIMEOUT", "5m")
	t.Setenv("CIRRUS_TERRAFORM_BIN", "tofu")

	v := New()
	v.Set(KeyBaseDir, t.TempDir())
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.ToolTimeout)
	assert.Equal(t, "tofu", s.TerraformBin)
}

func TestReadConfigFileMissingExplicit(t *testing.T) {
	err := ReadConfigFile(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"negative readiness timeout", func(s *Settings) { s.ReadinessTimeout = -time.Second }},
		{"zero interval", func(s *Settings) { s.ReadinessInterval = 0 }},
		{"extension without dot", func(s *Settings) { s.ReadinessExt = "tf" }},
		{"inventory with path", func(s *Settings) { s.InventoryFile = "../inventory.ini" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Set(KeyBaseDir, t.TempDir())
			s, err := Load(v)
			require.NoError(t, err)

			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestLoadEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("CIRRUS_TEST_LOADENV=from-file\n"), 0o644))
	t.Setenv("CIRRUS_TEST_LOADENV", "before")

	loaded := LoadEnv(nil, file, filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, []string{file}, loaded)
	assert.Equal(t, "from-file", os.Getenv("CIRRUS_TEST_LOADENV"))
}
