// Package config loads the account list and resolves the posting key.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thecrazygm/claim-rewards/utils/pkg/logger"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "accounts.yaml"

var (
	ErrNoAccountFile = errors.New("no account list found; pass --accounts or create " + DefaultFile)
	ErrNoAccounts    = errors.New("no accounts found in configuration")
)

// File is the YAML account file. The first account is the authority whose
// posting key signs every claim.
type File struct {
	Accounts   []string `yaml:"accounts"`
	PostingKey string   `yaml:"posting_key,omitempty"`
	WIF        string   `yaml:"wif,omitempty"`
	Nodes      []string `yaml:"nodes,omitempty"`
	ScotAPIURL string   `yaml:"scot_api_url,omitempty"`

	// Path is where the file was read from.
	Path string `yaml:"-"`
}

// Secret returns the posting key from the file, preferring posting_key
// over wif.
func (f *File) Secret() string {
	if f.PostingKey != "" {
		return f.PostingKey
	}
	return f.WIF
}

// Authority returns the first account.
func (f *File) Authority() string {
	if len(f.Accounts) == 0 {
		return ""
	}
	return f.Accounts[0]
}

func (f *File) Validate() error {
	if len(f.Accounts) == 0 {
		return ErrNoAccounts
	}
	for i, a := range f.Accounts {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("account %d is blank", i+1)
		}
	}
	return nil
}

// Redacted returns a copy safe to log.
func (f File) Redacted() File {
	if f.PostingKey != "" {
		f.PostingKey = logger.Redacted
	}
	if f.WIF != "" {
		f.WIF = logger.Redacted
	}
	f.Accounts = append([]string(nil), f.Accounts...)
	f.Nodes = append([]string(nil), f.Nodes...)
	return f
}

// Load reads and validates the account file at path, or DefaultFile when
// path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		if _, err := os.Stat(DefaultFile); errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoAccountFile
		}
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i := range f.Accounts {
		f.Accounts[i] = strings.TrimSpace(f.Accounts[i])
	}
	f.Path = path

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is ignored
// unless required is set.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
