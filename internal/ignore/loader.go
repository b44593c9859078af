package ignore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	// IgnoreFileName is the default name of the ignore file
	IgnoreFileName = ".sqlschemaignore"
)

// fileConfig is the TOML structure of the ignore file:
//
//	[tables]
//	patterns = ["temp_*", "!temp_keep"]
type fileConfig struct {
	Tables struct {
		Patterns []string `toml:"patterns"`
	} `toml:"tables"`
}

// LoadIgnoreFile loads the ignore file from the current directory.
// Returns nil if the file doesn't exist (ignore functionality is optional)
func LoadIgnoreFile() (*Config, error) {
	return LoadIgnoreFileFromPath(IgnoreFileName)
}

// LoadIgnoreFileFromPath loads an ignore file from the specified path.
// Returns nil if the file doesn't exist.
func LoadIgnoreFileFromPath(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var fc fileConfig
	md, err := toml.DecodeFile(filePath, &fc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", filePath, undecoded[0])
	}
	return &Config{Tables: fc.Tables.Patterns}, nil
}
