//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/sassoftware/cabtool/lib/cabfile"
)

type CreateConfig struct {
	Compression      string // none, mszip, quantum or lzx
	CompressionLevel int    `yaml:"compression_level"` // flate level for mszip
	Checksums        *bool  // write data block checksums (default true)
	MaxCabinetSize   int64  `yaml:"max_cabinet_size"` // split into a set above this size
	SpoolThreshold   int64  `yaml:"spool_threshold"`  // bytes kept in memory before using a temp file
}

type ExtractConfig struct {
	RestoreAttributes *bool `yaml:"restore_attributes"` // apply stored times and attributes (default true)
}

type LoggingConfig struct {
	Level string // zerolog level name
	File  string // "-" for JSON on stderr, empty for console output
}

type VerifyConfig struct {
	Parallel int // cabinets checked at once
}

type Config struct {
	Create  *CreateConfig
	Extract *ExtractConfig
	Logging *LoggingConfig
	Verify  *VerifyConfig

	path string
}

// Default returns a configuration with every section present
func Default() *Config {
	config := new(Config)
	_ = config.Normalize()
	return config
}

func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	config.path = path
	return config, nil
}

// Parse decodes a YAML configuration, rejecting unknown keys
func Parse(data []byte) (*Config, error) {
	config := new(Config)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// Normalize fills in missing sections and checks values
func (config *Config) Normalize() error {
	if config.Create == nil {
		config.Create = new(CreateConfig)
	}
	if config.Extract == nil {
		config.Extract = new(ExtractConfig)
	}
	if config.Logging == nil {
		config.Logging = new(LoggingConfig)
	}
	if config.Verify == nil {
		config.Verify = new(VerifyConfig)
	}
	if _, err := cabfile.ParseCompression(config.Create.Compression); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if config.Create.MaxCabinetSize < 0 {
		return errors.New("create: max_cabinet_size must not be negative")
	}
	if config.Verify.Parallel < 0 {
		return errors.New("verify: parallel must not be negative")
	}
	return nil
}

// Path returns the file the configuration was read from, if any
func (config *Config) Path() string {
	return config.path
}

func (c *CreateConfig) CompressionType() cabfile.CompressionType {
	t, _ := cabfile.ParseCompression(c.Compression)
	return t
}

func (c *CreateConfig) ChecksumsEnabled() bool {
	return c.Checksums == nil || *c.Checksums
}

func (c *ExtractConfig) Restore() bool {
	return c.RestoreAttributes == nil || *c.RestoreAttributes
}

func (c *VerifyConfig) Workers() int {
	if c.Parallel > 0 {
		return c.Parallel
	}
	return runtime.NumCPU()
}
