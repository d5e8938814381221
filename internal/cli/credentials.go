package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const credentialsFile = "credentials.yaml"

// Credentials is the session saved between invocations
type Credentials struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// LoadCredentials reads the saved session; a missing file yields empty credentials
func LoadCredentials(home string) (*Credentials, error) {
	data, err := os.ReadFile(filepath.Join(home, credentialsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &Credentials{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &c, nil
}

// Save writes the credentials readable by the owner only
func (c *Credentials) Save(home string) error {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(home, credentialsFile), data, 0o600)
}

// Clear forgets the token but keeps the base URL
func (c *Credentials) Clear(home string) error {
	c.Token = ""
	c.Username = ""
	return c.Save(home)
}
