// Package template materializes the shared template store into a cluster
// directory and substitutes the literal placeholder tokens in the copy.
package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/otiai10/copy"
)

// Placeholder tokens understood by existing template corpora
const (
	NameToken   = "##name##"
	RegionToken = "##region##"
)

// Tokens returns the token mapping for a cluster
func Tokens(name, region string) map[string]string {
	return map[string]string{
		NameToken:   name,
		RegionToken: region,
	}
}

// Materialize deep-copies the template tree src into dst.
// dst must not exist yet; symlinks are resolved so the copy never shares
// files with the template store.
func Materialize(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat template %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template %s is not a directory", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("destination %s: %w", dst, fs.ErrExist)
	}

	err = copy.Copy(src, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
		Sync:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to copy template %s to %s: %w", src, dst, err)
	}
	return nil
}

// Substitute replaces every literal occurrence of each token in the contents
// of the regular files under root. Files that are not valid UTF-8 text are
// left untouched, as are file and directory names. It returns the paths,
// relative to root, of the files it rewrote.
//
// Files are modified in place without backup: only call it on a copy.
func Substitute(root string, tokens map[string]string) ([]string, error) {
	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var changed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !isText(data) {
			return nil
		}

		content := string(data)
		replaced := content
		for _, k := range keys {
			replaced = strings.ReplaceAll(replaced, k, tokens[k])
		}
		if replaced == content {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(replaced), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		changed = append(changed, rel)
		return nil
	})
	if err != nil {
		return changed, err
	}
	return changed, nil
}

// isText reports whether data decodes as UTF-8 text
func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) == -1
}
