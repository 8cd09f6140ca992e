package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported context providers
const (
	ProviderAWS = "aws"
	ProviderGCP = "gcp"
)

// Context represents a cloud context configuration
type Context struct {
	Provider string `yaml:"provider"`          // "aws" or "gcp"
	Profile  string `yaml:"profile,omitempty"` // AWS profile name
	Project  string `yaml:"project,omitempty"` // GCP project ID
	Region   string `yaml:"region,omitempty"`  // Default region
}

// Validate checks the provider-specific required fields
func (c *Context) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderAWS:
		if c.Profile == "" {
			return fmt.Errorf("--profile is required for AWS contexts")
		}
	case ProviderGCP:
		if c.Project == "" {
			return fmt.Errorf("--project is required for GCP contexts")
		}
	default:
		return fmt.Errorf("unknown provider: %s (supported: aws, gcp)", c.Provider)
	}
	return nil
}

// ContextsFile is the layout of the contexts file
type ContextsFile struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`
}

// ContextStore reads and writes the contexts file
type ContextStore struct {
	path string
}

// NewContextStore creates a store backed by path
func NewContextStore(path string) *ContextStore {
	return &ContextStore{path: path}
}

// DefaultContextsPath returns ~/.cirrus/contexts.yaml
func DefaultContextsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cirrus", "contexts.yaml")
	}
	return filepath.Join(home, ".cirrus", "contexts.yaml")
}

// Path returns the contexts file path
func (s *ContextStore) Path() string {
	return s.path
}

// Load reads the contexts file. A missing file yields an empty configuration.
func (s *ContextStore) Load() (*ContextsFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ContextsFile{Contexts: make(map[string]*Context)}, nil
		}
		return nil, fmt.Errorf("failed to read contexts file: %w", err)
	}

	var cfg ContextsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse contexts file: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	return &cfg, nil
}

// Save writes the contexts file, creating its directory
func (s *ContextStore) Save(cfg *ContextsFile) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal contexts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write contexts file: %w", err)
	}
	return nil
}

// Current returns the active context, or nil when none is set
func (s *ContextStore) Current() (*Context, string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, "", err
	}
	if cfg.CurrentContext == "" {
		return nil, "", nil
	}
	ctx, ok := cfg.Contexts[cfg.CurrentContext]
	if !ok {
		return nil, "", fmt.Errorf("context %q not found", cfg.CurrentContext)
	}
	return ctx, cfg.CurrentContext, nil
}

// Get returns a named context
func (s *ContextStore) Get(name string) (*Context, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	ctx, ok := cfg.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// SetCurrent sets the active context
func (s *ContextStore) SetCurrent(name string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	cfg.CurrentContext = name
	return s.Save(cfg)
}

// Add adds or replaces a context
func (s *ContextStore) Add(name string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	cfg.Contexts[name] = ctx
	return s.Save(cfg)
}

// Delete removes a context, clearing it if it was active
func (s *ContextStore) Delete(name string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(cfg.Contexts, name)
	if cfg.CurrentContext == name {
		cfg.CurrentContext = ""
	}
	return s.Save(cfg)
}

// List returns all contexts, their sorted names and the active name
func (s *ContextStore) List() (map[string]*Context, []string, string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, nil, "", err
	}
	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return cfg.Contexts, names, cfg.CurrentContext, nil
}

// ParseContextName parses a context name like "aws:prod" into provider and name
func ParseContextName(name string) (provider, contextName string) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", name
}
