package cluster

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vietdv277/cirrus/pkg/types"
)

const (
	envFileExt   = ".env"
	emptyEnvBody = "# No environment variables\n"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ErrDuplicateEnvFile is returned when two repositories map to the same env file
var ErrDuplicateEnvFile = errors.New("duplicate env file")

// EnvFileName returns the env file name of a repository: the last path
// segment of its URL without ".git", e.g. "git@host:org/api.git" -> "api.env"
func EnvFileName(repo types.RepoConfig) string {
	base := strings.TrimRight(repo.Repo, "/")
	if i := strings.LastIndexAny(base, "/:"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".git")
	base = strings.Trim(unsafeFileChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = strings.Trim(unsafeFileChars.ReplaceAllString(repo.ServiceName, "_"), "._")
	}
	if base == "" {
		base = "repository"
	}
	return base + envFileExt
}

// EnvFilePath returns the env file of a repository inside the cluster directory
func (r *Repository) EnvFilePath(name string, repo types.RepoConfig) string {
	return filepath.Join(r.Path(name), EnvFileName(repo))
}

// ValidateRepositories checks that every repository gets its own env file
func ValidateRepositories(repos []types.RepoConfig) error {
	seen := make(map[string]string, len(repos))
	for _, repo := range repos {
		file := EnvFileName(repo)
		if prev, ok := seen[file]; ok {
			return fmt.Errorf("%w %s for repositories %s and %s", ErrDuplicateEnvFile, file, prev, repo.Repo)
		}
		seen[file] = repo.Repo
	}
	return nil
}

// WriteEnvFiles writes one dotenv file per repository and removes env files
// of repositories that are no longer listed. Values must already be resolved.
func (r *Repository) WriteEnvFiles(name string, repos []types.RepoConfig) ([]string, error) {
	if err := ValidateRepositories(repos); err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(repos))
	written := make([]string, 0, len(repos))

	for _, repo := range repos {
		file := EnvFileName(repo)
		keep[file] = true

		body := emptyEnvBody
		if len(repo.Env) > 0 {
			content, err := godotenv.Marshal(repo.Env)
			if err != nil {
				return written, fmt.Errorf("failed to encode env for %s: %w", repo.Repo, err)
			}
			body = content + "\n"
		}

		if err := writeFileAtomic(filepath.Join(r.Path(name), file), []byte(body), 0o600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", file, err)
		}
		written = append(written, file)
	}

	stale, err := r.envFiles(name)
	if err != nil {
		return written, err
	}
	for _, file := range stale {
		if keep[file] {
			continue
		}
		if err := os.Remove(filepath.Join(r.Path(name), file)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("failed to remove stale %s: %w", file, err)
		}
	}
	return written, nil
}

// ReadEnvFile loads the env file of a repository
func (r *Repository) ReadEnvFile(name string, repo types.RepoConfig) (map[string]string, error) {
	env, err := godotenv.Read(r.EnvFilePath(name, repo))
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return env, nil
}

func (r *Repository) envFiles(name string) ([]string, error) {
	entries, err := os.ReadDir(r.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to list env files: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), envFileExt) {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
