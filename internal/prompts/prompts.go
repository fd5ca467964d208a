// Package prompts loads the static prompt content library used by agents.
// The library is a JSON file of packs, each holding prompts keyed by ID.
package prompts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Library maps prompt IDs to their text.
type Library map[string]string

// packFile is the on-disk shape of the prompt library.
type packFile struct {
	Packs []struct {
		Name    string `json:"name"`
		Prompts []struct {
			ID     string `json:"id"`
			Prompt string `json:"prompt"`
		} `json:"prompts"`
	} `json:"packs"`
}

// Load reads the prompt library from the given JSON file.
// A missing file yields an empty library, not an error: runs can proceed
// with task descriptions alone.
func Load(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Library{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}

	var pf packFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	lib := make(Library)
	for _, pack := range pf.Packs {
		for _, p := range pack.Prompts {
			lib[p.ID] = p.Prompt
		}
	}
	return lib, nil
}

// Get returns the prompt text for an ID, and whether it exists.
func (l Library) Get(id string) (string, bool) {
	text, ok := l[id]
	return text, ok
}

// Len returns the number of prompts loaded.
func (l Library) Len() int {
	return len(l)
}
