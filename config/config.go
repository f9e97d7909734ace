/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads entity definitions, providers and the hydration policy
// from a YAML file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type FieldConfig struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
}

type RelationshipConfig struct {
	Name string `yaml:"name"`
	// Target is the related entity type.
	Target string `yaml:"target"`
	// Cardinality is "one-to-one" (default) or "one-to-many".
	Cardinality string `yaml:"cardinality"`
	KeyField    string `yaml:"keyField"`
	FilterField string `yaml:"filterField"`
}

type DefinitionConfig struct {
	Type          string               `yaml:"type"`
	Key           string               `yaml:"key"`
	Fields        []FieldConfig        `yaml:"fields"`
	Relationships []RelationshipConfig `yaml:"relationships"`
	// IndexMap holds DynamoDB key templates such as {"PK": "USER#{id}"}.
	IndexMap map[string]string `yaml:"indexMap"`
}

type PagerConfig struct {
	// Kind is "odata", "offset" or "dynamodb". Empty picks the backend default.
	Kind        string `yaml:"kind"`
	MaxPageSize int    `yaml:"maxPageSize"`
	Prefix      string `yaml:"prefix"`
}

type BindingConfig struct {
	Type string `yaml:"type"`
	// Path is the REST collection path.
	Path         string      `yaml:"path"`
	Operations   []string    `yaml:"operations"`
	UpdateMethod string      `yaml:"updateMethod"`
	Filters      []string    `yaml:"filters"`
	FilterPolicy string      `yaml:"filterPolicy"`
	Pager        PagerConfig `yaml:"pager"`
}

type BackendConfig struct {
	// Kind is "rest" or "dynamodb".
	Kind string `yaml:"kind"`

	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Debug   bool              `yaml:"debug"`

	Table     string `yaml:"table"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

type ProviderConfig struct {
	Name     string          `yaml:"name"`
	Backend  BackendConfig   `yaml:"backend"`
	Bindings []BindingConfig `yaml:"bindings"`
}

type OverrideConfig struct {
	Type  string `yaml:"type"`
	Mode  string `yaml:"mode"`
	Depth int    `yaml:"depth"`
}

type PolicyConfig struct {
	Default   string           `yaml:"default"`
	Depth     int              `yaml:"depth"`
	Overrides []OverrideConfig `yaml:"overrides"`
}

type Config struct {
	Definitions []DefinitionConfig `yaml:"definitions"`
	Providers   []ProviderConfig   `yaml:"providers"`
	Policy      PolicyConfig       `yaml:"policy"`
}

// LoadConfiguration reads a YAML configuration. ${VAR} references are replaced
// with environment variables before parsing.
func LoadConfiguration(data io.Reader) (*Config, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(buf))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewBufferString(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile reads the configuration at path. A .env file next to it is loaded
// first if present; variables already set in the environment win.
func LoadFile(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadConfiguration(f)
}
