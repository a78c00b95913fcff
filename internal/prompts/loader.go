// Package prompts holds the embedded text-generation prompt templates.
// Each JSON file maps a template key to its text.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

type table = map[string]string

var (
	tablesMu sync.Mutex
	tables   = map[string]func() (table, error){}
)

// Text returns the raw template stored under key in file.
func Text(file, key string) (string, error) {
	t, err := open(file)
	if err != nil {
		return "", err
	}
	text, ok := t[key]
	if !ok {
		return "", fmt.Errorf("prompt %s/%s not found", file, key)
	}
	return text, nil
}

// Render looks up a template and fills its {{.Name}} placeholders.
func Render(file, key string, data map[string]string) (string, error) {
	text, err := Text(file, key)
	if err != nil {
		return "", err
	}
	return Fill(text, data), nil
}

// Fill substitutes {{.Name}} placeholders in one pass. Substituted values are
// never expanded again and unknown placeholders stay as they are.
func Fill(text string, data map[string]string) string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "{{."+name+"}}", data[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// open parses file at most once; the result, error included, is memoized.
func open(file string) (table, error) {
	tablesMu.Lock()
	load, ok := tables[file]
	if !ok {
		load = sync.OnceValues(func() (table, error) { return parse(file) })
		tables[file] = load
	}
	tablesMu.Unlock()
	return load()
}

func parse(file string) (table, error) {
	raw, err := files.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", file, err)
	}
	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", file, err)
	}
	return t, nil
}
