package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/cirrus/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadRepositories(t *testing.T) {
	dir := t.TempDir()

	t.Run("mapping", func(t *testing.T) {
		path := filepath.Join(dir, "doc.yaml")
		writeFile(t, path, `repositories:
  - service_name: api
    repo: git@github.com:acme/api.git
    branch: main
    env:
      TOKEN: ssm:/acme/token
`)
		repos, err := readRepositories(path)
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "api", repos[0].ServiceName)
		assert.Equal(t, "ssm:/acme/token", repos[0].Env["TOKEN"])
	})

	t.Run("bare json list", func(t *testing.T) {
		path := filepath.Join(dir, "list.json")
		writeFile(t, path, `[{"service_name":"web","repo":"https://github.com/acme/web","branch":"dev"}]`)
		repos, err := readRepositories(path)
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "dev", repos[0].Branch)
	})

	t.Run("empty", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		writeFile(t, path, "")
		repos, err := readRepositories(path)
		require.NoError(t, err)
		assert.Empty(t, repos)
	})

	t.Run("invalid", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		writeFile(t, path, "name: acme\n")
		_, err := readRepositories(path)
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := readRepositories(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClusterCommandsEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true binary not available")
	}

	base := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CIRRUS_TERRAFORM_BIN", "true")
	t.Setenv("CIRRUS_ANSIBLE_BIN", "true")

	writeFile(t, filepath.Join(base, "template", "main.tf"), `cluster = "##name##"`+"\n"+`region = "##region##"`+"\n")
	writeFile(t, filepath.Join(base, "template", "inventory.ini"), "[front]\n")
	writeFile(t, filepath.Join(base, "playbooks", "front.yml"), "- hosts: front\n")

	out, err := run(t, "cluster", "create", "acme", "--region", "us-east1", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, "created successfully")

	tf, err := os.ReadFile(filepath.Join(base, "clusters", "acme", "template", "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "cluster = \"acme\"\nregion = \"us-east1\"\n", string(tf))

	out, err = run(t, "cluster", "list", "-o", "json", "--base-dir", base)
	require.NoError(t, err, out)
	var summaries []types.ClusterSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "acme", summaries[0].Name)
	assert.Equal(t, types.ClusterStateReady, summaries[0].State)

	out, err = run(t, "cluster", "get", "acme", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"region": "us-east1"`)

	out, err = run(t, "cluster", "deploy", "acme", "--pod", "front", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deployment of front")

	out, err = run(t, "cluster", "activity", "acme", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cluster created successfully")

	out, err = run(t, "cluster", "status", "acme", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ready")

	out, err = run(t, "cluster", "delete", "acme", "--yes", "--base-dir", base)
	require.NoError(t, err, out)
	assert.Contains(t, out, "deleted successfully")
	assert.NoDirExists(t, filepath.Join(base, "clusters", "acme"))
}

func TestClusterCreateFailureRollsBack(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false binary not available")
	}

	base := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CIRRUS_TERRAFORM_BIN", "false")
	writeFile(t, filepath.Join(base, "template", "main.tf"), "x = 1\n")

	_, err := run(t, "cluster", "create", "broken", "--region", "us-east1", "--base-dir", base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.NoDirExists(t, filepath.Join(base, "clusters", "broken"))
}

func TestUseAndContexts(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := run(t, "contexts")
	require.NoError(t, err)
	assert.Contains(t, out, "No contexts configured")

	out, err = run(t, "use", "add", "aws:prod", "--profile", "prod-sso", "--region", "us-east-1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Context added: aws:prod")

	out, err = run(t, "use", "aws:prod")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Switched to context: aws:prod")

	out, err = run(t, "use", "aws:missing")
	require.NoError(t, err)
	assert.Contains(t, out, "not found")

	out, err = run(t, "contexts")
	require.NoError(t, err)
	assert.Contains(t, out, "aws:prod")
	assert.Contains(t, out, "1 contexts configured")

	out, err = run(t, "use", "delete", "aws:prod")
	require.NoError(t, err)
	assert.Contains(t, out, "Context deleted")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
}
