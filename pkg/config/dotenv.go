package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnvLoader implements Provider with .env file support
type DotEnvLoader struct {
	*Loader
	envFiles []string
}

// NewDotEnvLoader creates a configuration loader with .env file support.
// JIRA_ACCESS_TOKEN is required unless DEMO_MODE is set.
func NewDotEnvLoader(envFiles ...string) Provider {
	return newDotEnvLoader(&Loader{envLoader: &OSEnvLoader{}, requireToken: true}, envFiles)
}

// NewServerDotEnvLoader creates a .env-aware loader for the API server, where the
// access token may arrive with each request instead of the environment.
func NewServerDotEnvLoader(envFiles ...string) Provider {
	return newDotEnvLoader(&Loader{envLoader: &OSEnvLoader{}}, envFiles)
}

// NewDotEnvLoaderWithEnv creates a loader with custom environment loader and .env support
func NewDotEnvLoaderWithEnv(envLoader EnvLoader, envFiles ...string) Provider {
	return newDotEnvLoader(&Loader{envLoader: envLoader, requireToken: true}, envFiles)
}

func newDotEnvLoader(loader *Loader, envFiles []string) *DotEnvLoader {
	// Default to .env file in current directory if none specified
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &DotEnvLoader{
		Loader:   loader,
		envFiles: envFiles,
	}
}

// Load loads configuration from .env file(s) and environment variables
func (d *DotEnvLoader) Load() (*Config, error) {
	existingFiles := []string{}
	for _, envFile := range d.envFiles {
		if _, err := os.Stat(envFile); err == nil {
			existingFiles = append(existingFiles, envFile)
		}
	}

	// godotenv.Overload with multiple files lets later files win over earlier
	// ones and over the process environment
	if len(existingFiles) > 0 {
		if err := godotenv.Overload(existingFiles...); err != nil {
			absPath := existingFiles[0]
			if len(existingFiles) > 1 {
				absPath = "multiple files: " + strings.Join(existingFiles, ", ")
			}
			return nil, NewEnvFileError(absPath, err)
		}
	}

	return d.LoadFromEnv()
}

// EnvFileError represents an error loading a .env file
type EnvFileError struct {
	FilePath string
	Err      error
}

func NewEnvFileError(filePath string, err error) *EnvFileError {
	return &EnvFileError{
		FilePath: filePath,
		Err:      err,
	}
}

func (e *EnvFileError) Error() string {
	return "failed to load .env file '" + e.FilePath + "': " + e.Err.Error()
}

func (e *EnvFileError) Unwrap() error {
	return e.Err
}

// LoadWithEnvFile is a convenience function to load configuration with .env file support
func LoadWithEnvFile(envFiles ...string) (*Config, error) {
	loader := NewDotEnvLoader(envFiles...)
	return loader.Load()
}

// LoadFromCurrentDir loads configuration from .env file in current directory
func LoadFromCurrentDir() (*Config, error) {
	return LoadWithEnvFile(".env")
}
