package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is the persisted subset of Config written by first-boot setup.
// Stored in ConfigDir as config.yaml. Do not commit this file; it holds secrets.
type File struct {
	Provider            string `yaml:"provider,omitempty"`
	OpenRouterAPIKey    string `yaml:"openrouter_api_key,omitempty"`
	GeminiAPIKey        string `yaml:"gemini_api_key,omitempty"`
	Model               string `yaml:"model,omitempty"`
	CloudinaryCloudName string `yaml:"cloudinary_cloud_name,omitempty"`
	CloudinaryAPIKey    string `yaml:"cloudinary_api_key,omitempty"`
	CloudinaryAPISecret string `yaml:"cloudinary_api_secret,omitempty"`
}

// LoadFile reads dir/config.yaml. Missing file returns nil, nil.
func LoadFile(dir string) (*File, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFile writes f to dir/config.yaml, readable by the owner only.
func SaveFile(dir string, f *File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o600)
}
