// Package template resolves named subject/body templates with variable
// substitution. Templates come from configuration; rendering is standard
// text/template with the sprig function map available.
package template

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

var (
	// ErrNotFound indicates the requested template id is not registered.
	ErrNotFound = errors.New("template not found")

	// ErrRender indicates the template failed to parse or execute.
	ErrRender = errors.New("failed to render template")
)

// Definition is a named subject/body pattern. Both fields are templates;
// substitution data is applied to each.
type Definition struct {
	Subject string
	Body    string
}

// Store holds the registered templates. It is populated once at startup
// and read-only afterwards.
type Store struct {
	templates map[string]Definition
}

// NewStore builds a Store from the given definitions.
func NewStore(defs map[string]Definition) *Store {
	templates := make(map[string]Definition, len(defs))
	for id, def := range defs {
		templates[id] = def
	}
	return &Store{templates: templates}
}

// IDs returns the registered template identifiers, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve renders the template with the given substitution data and
// returns the rendered subject and body.
func (s *Store) Resolve(id string, data map[string]string) (subject, body string, err error) {
	def, ok := s.templates[id]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	subject, err = render(id+".subject", def.Subject, data)
	if err != nil {
		return "", "", err
	}
	body, err = render(id+".body", def.Body, data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func render(name, text string, data map[string]string) (string, error) {
	tmpl, err := texttemplate.New(name).
		Funcs(sprig.FuncMap()).
		Option("missingkey=zero").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrRender, name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: execute %s: %v", ErrRender, name, err)
	}
	return buf.String(), nil
}
