package template

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// binaryBlob is not valid UTF-8 and embeds the name token
var binaryBlob = append([]byte{0x89, 'P', 'N', 'G', 0xff, 0xfe, 0x00}, []byte("##name##")...)

func TestSubstituteReplacesTokensInText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.tf"), []byte(`project = "##name##-##region##"`))
	writeFile(t, filepath.Join(root, "modules", "net", "vars.tf"), []byte("a = \"##name##\"\nb = \"##name##\"\n"))
	writeFile(t, filepath.Join(root, "README.md"), []byte("no tokens here"))

	changed, err := Substitute(root, Tokens("acme", "us-east1"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"main.tf", filepath.Join("modules", "net", "vars.tf")}, changed)
	assert.Equal(t, `project = "acme-us-east1"`, readFile(t, filepath.Join(root, "main.tf")))
	assert.Equal(t, "a = \"acme\"\nb = \"acme\"\n", readFile(t, filepath.Join(root, "modules", "net", "vars.tf")))
	assert.Equal(t, "no tokens here", readFile(t, filepath.Join(root, "README.md")))
}

func TestSubstituteLeavesNoTokensInAnyTextFile(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(root, "dir", strings.Repeat("x", i+1)+".tf"),
			[]byte(strings.Repeat("##name## ", i+1)))
	}

	_, err := Substitute(root, Tokens("v", "r"))
	require.NoError(t, err)

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if d.Type().IsRegular() {
			assert.NotContains(t, readFile(t, path), NameToken, path)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSubstituteSkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "logo.png")
	writeFile(t, bin, binaryBlob)

	changed, err := Substitute(root, Tokens("acme", "us-east1"))
	require.NoError(t, err)
	assert.Empty(t, changed)

	after, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(binaryBlob, after), "binary file must be byte-identical")
}

func TestSubstituteNeverRenamesFiles(t *testing.T) {
	root := t.TempDir()
	odd := filepath.Join(root, "##name##", "##name##.tf")
	writeFile(t, odd, []byte("##name##"))

	_, err := Substitute(root, Tokens("acme", "r"))
	require.NoError(t, err)

	assert.Equal(t, "acme", readFile(t, odd))
	_, err = os.Stat(filepath.Join(root, "acme"))
	assert.True(t, os.IsNotExist(err))
}

func TestSubstituteSequentialMatchesCombined(t *testing.T) {
	content := []byte("name=##name## region=##region## both=##name##/##region##")

	combined := t.TempDir()
	writeFile(t, filepath.Join(combined, "f.tf"), content)
	_, err := Substitute(combined, Tokens("acme", "eu-west1"))
	require.NoError(t, err)

	sequential := t.TempDir()
	writeFile(t, filepath.Join(sequential, "f.tf"), content)
	_, err = Substitute(sequential, map[string]string{NameToken: "acme"})
	require.NoError(t, err)
	_, err = Substitute(sequential, map[string]string{RegionToken: "eu-west1"})
	require.NoError(t, err)

	assert.Equal(t, readFile(t, filepath.Join(combined, "f.tf")), readFile(t, filepath.Join(sequential, "f.tf")))
}

func TestMaterializeCopiesIndependently(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "main.tf"), []byte(`name = "##name##"`))
	writeFile(t, filepath.Join(src, "nested", "vars.tf"), []byte("##region##"))

	base := t.TempDir()
	first := filepath.Join(base, "a", "template")
	second := filepath.Join(base, "b", "template")
	require.NoError(t, Materialize(src, first))
	require.NoError(t, Materialize(src, second))

	_, err := Substitute(first, Tokens("alpha", "r1"))
	require.NoError(t, err)

	assert.Equal(t, `name = "alpha"`, readFile(t, filepath.Join(first, "main.tf")))
	assert.Equal(t, `name = "##name##"`, readFile(t, filepath.Join(second, "main.tf")))
	assert.Equal(t, `name = "##name##"`, readFile(t, filepath.Join(src, "main.tf")))
	assert.Equal(t, "##region##", readFile(t, filepath.Join(second, "nested", "vars.tf")))
}

func TestMaterializeRejectsExistingDestination(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "main.tf"), []byte("x"))

	dst := t.TempDir()
	err := Materialize(src, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestMaterializeMissingSource(t *testing.T) {
	err := Materialize(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
