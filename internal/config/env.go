package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vietdv277/cirrus/internal/logging"
)

// EnvFiles are the dotenv files loaded at startup, later files winning
var EnvFiles = []string{".env", ".env.dev"}

// LoadEnv loads the local dotenv files into the process environment
func LoadEnv(logger logging.Logger, files ...string) []string {
	if len(files) == 0 {
		files = EnvFiles
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger != nil {
		if len(loaded) == 0 {
			logger.Debug("No local env files loaded; relying on process environment")
		} else {
			logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
		}
	}
	return loaded
}
