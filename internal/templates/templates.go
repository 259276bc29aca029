// Package templates holds the operator-editable message texts. Templates
// live in a YAML file next to the rest of the bot state; unknown keys and
// missing placeholders degrade instead of erroring so a bad edit can never
// break production traffic.
package templates

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Template struct {
	Text        string `yaml:"text" json:"text"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type Store struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	messages map[string]Template
}

// Load reads the template file at path, merging in any defaults the file
// does not carry yet, and writes the merged set back. A missing file
// starts from defaults. An empty path keeps the store memory-only.
func Load(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:     strings.TrimSpace(path),
		logger:   logger,
		messages: Defaults(),
	}
	if s.path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		// First run.
	case err != nil:
		return nil, fmt.Errorf("read templates: %w", err)
	default:
		var loaded map[string]Template
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		for key, tmpl := range loaded {
			if strings.TrimSpace(tmpl.Text) == "" {
				continue
			}
			s.messages[key] = tmpl
		}
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	logger.Info("templates_loaded", "path", s.path, "count", len(s.messages))
	return s, nil
}

// Render formats the template behind key with {placeholder} substitution.
// An unknown key renders a stub naming the key; a template referencing a
// placeholder the caller did not supply renders as raw template text.
func (s *Store) Render(key string, vars map[string]string) string {
	s.mu.Lock()
	tmpl, ok := s.messages[key]
	s.mu.Unlock()
	if !ok {
		s.logger.Warn("template_missing", "key", key)
		return fmt.Sprintf("(template %q is not configured)", key)
	}
	out, missing := substitute(tmpl.Text, vars)
	if missing != "" {
		s.logger.Warn("template_placeholder_missing", "key", key, "placeholder", missing)
		return tmpl.Text
	}
	return out
}

func substitute(text string, vars map[string]string) (string, string) {
	var b strings.Builder
	b.Grow(len(text))
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			return b.String(), ""
		}
		end := strings.IndexByte(text[open:], '}')
		if end < 0 {
			b.WriteString(text)
			return b.String(), ""
		}
		name := text[open+1 : open+end]
		value, ok := vars[name]
		if !ok {
			return "", name
		}
		b.WriteString(text[:open])
		b.WriteString(value)
		text = text[open+end+1:]
	}
}

// Get returns the template behind key.
func (s *Store) Get(key string) (Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmpl, ok := s.messages[key]
	return tmpl, ok
}

// Set overwrites the text of an existing template. Unknown keys are
// rejected: the key set is closed, only texts are editable.
func (s *Store) Set(key, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmpl, ok := s.messages[key]
	if !ok {
		return false
	}
	tmpl.Text = text
	s.messages[key] = tmpl
	s.persistBestEffortLocked()
	return true
}

// Reset restores a single template to its default.
func (s *Store) Reset(key string) bool {
	def, ok := Defaults()[key]
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[key] = def
	s.persistBestEffortLocked()
	return true
}

// ResetAll restores every template to its default.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = Defaults()
	s.persistBestEffortLocked()
}

// Keys lists every template key, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.messages))
	for key := range s.messages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of the full template map, for the dashboard editor.
func (s *Store) All() map[string]Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Template, len(s.messages))
	for key, tmpl := range s.messages {
		out[key] = tmpl
	}
	return out
}

func (s *Store) persistBestEffortLocked() {
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("templates_persist_failed", "error", err.Error())
	}
}

func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := yaml.Marshal(s.messages)
	if err != nil {
		return fmt.Errorf("marshal templates: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".templates-*.yaml")
	if err != nil {
		return fmt.Errorf("write templates: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write templates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write templates: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write templates: %w", err)
	}
	return nil
}
