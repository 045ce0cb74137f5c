// Package templates ships the built-in report templates. They live in
// the binary rather than the database so a fresh install renders
// reports before anyone has authored a template. Built-in IDs are
// negative and never collide with stored templates.
package templates

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml assets/*.html
var assets embed.FS

// Builtin is one shipped template.
type Builtin struct {
	ID          int64  `yaml:"id" json:"template_id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	File        string `yaml:"file" json:"-"`
	IsDefault   bool   `yaml:"default" json:"is_default"`
	HTML        string `yaml:"-" json:"html_content"`
}

type manifest struct {
	Templates []Builtin `yaml:"templates"`
}

var (
	loadOnce sync.Once
	loaded   []Builtin
	loadErr  error
)

func load() ([]Builtin, error) {
	loadOnce.Do(func() {
		raw, err := assets.ReadFile("manifest.yaml")
		if err != nil {
			loadErr = fmt.Errorf("read template manifest: %w", err)
			return
		}
		var m manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			loadErr = fmt.Errorf("parse template manifest: %w", err)
			return
		}
		for i := range m.Templates {
			body, err := assets.ReadFile("assets/" + m.Templates[i].File)
			if err != nil {
				loadErr = fmt.Errorf("read builtin template %q: %w", m.Templates[i].Name, err)
				return
			}
			m.Templates[i].HTML = string(body)
		}
		loaded = m.Templates
	})
	return loaded, loadErr
}

// All returns every built-in template in manifest order.
func All() ([]Builtin, error) {
	return load()
}

// ByID returns the built-in template with the given negative ID.
func ByID(id int64) (Builtin, bool) {
	all, err := load()
	if err != nil {
		return Builtin{}, false
	}
	for _, t := range all {
		if t.ID == id {
			return t, true
		}
	}
	return Builtin{}, false
}

// Default returns the template marked as the default choice.
func Default() (Builtin, bool) {
	all, err := load()
	if err != nil {
		return Builtin{}, false
	}
	for _, t := range all {
		if t.IsDefault {
			return t, true
		}
	}
	return Builtin{}, false
}
