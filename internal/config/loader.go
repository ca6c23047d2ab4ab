// Copyright 2025 Kadir Pekel
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

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader reads, parses, expands, decodes, defaults, and validates the
// configuration document, optionally watching it for hot reload.
type Loader struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
}

// NewLoader creates a Loader bound to a file path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the document at Loader's path, applies steps 1-6 of spec
// §4.1, and returns the resulting immutable Config record.
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &ConfigParseError{Err: err}
	}

	rawMap, err := parseBytes(data)
	if err != nil {
		return nil, &ConfigParseError{Err: err}
	}

	expanded, err := expandEnvVars(rawMap)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := decodeConfig(expanded.(map[string]any), cfg); err != nil {
		return nil, &ConfigParseError{Err: err}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.current.Store(cfg)
	return cfg, nil
}

// Current returns the most recently loaded, atomically-held Config. A
// request in flight during a hot reload keeps whichever snapshot it
// captured at the start (spec §4.1: "atomically swap ... so in-flight
// requests observe a single consistent snapshot").
func (l *Loader) Current() *Config {
	return l.current.Load()
}

// Watch starts an fsnotify watch on the config file and calls onChange
// with the freshly loaded Config whenever the file is rewritten. A
// reload that fails to parse or validate is logged and does not replace
// the current snapshot — hot reload failures are never fatal at request
// time (spec §4.1).
func (l *Loader) Watch(ctx context.Context, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	l.watcher = w

	if err := w.Add(l.path); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", l.path, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := l.Load()
				if err != nil {
					slog.Error("config hot reload failed, keeping previous snapshot", "error", err)
					continue
				}
				slog.Info("configuration reloaded")
				if onChange != nil {
					onChange(cfg)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close releases the watcher, if any.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func parseBytes(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err == nil {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}
	return result, nil
}

func decodeConfig(input map[string]any, output *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(input)
}
