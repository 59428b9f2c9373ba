// Package examples loads the YAML files of (query, code) pairs that get reviewed.
package examples

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"spanreview/internal/safeio"
)

var ErrNotList = errors.New("examples: top level is not a list")

// Example is one generated program together with the request it answers.
// CodeFile names a file, relative to the examples file, holding the code;
// it may not leave that directory.
type Example struct {
	Query    string `yaml:"query" json:"query"`
	Code     string `yaml:"code" json:"code"`
	CodeFile string `yaml:"code_file,omitempty" json:"code_file,omitempty"`
	Notes    string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Load reads and validates the examples file at path, filling Code from
// CodeFile where given.
func Load(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fsys, err := safeio.NewSafeFS(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	out, err := parse(f, fsys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Parse decodes a YAML list of examples. Every entry needs a query and code;
// entries using code_file can only be read through Load.
func Parse(r io.Reader) ([]Example, error) {
	return parse(r, nil)
}

func parse(r io.Reader, fsys *safeio.SafeFS) ([]Example, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotList
		}
		return nil, fmt.Errorf("examples: decode: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
		return nil, ErrNotList
	}
	var out []Example
	if err := root.Content[0].Decode(&out); err != nil {
		return nil, fmt.Errorf("examples: decode: %w", err)
	}
	for i := range out {
		ex := &out[i]
		if strings.TrimSpace(ex.Query) == "" {
			return nil, fmt.Errorf("examples: entry %d: query is required", i)
		}
		if ex.CodeFile != "" {
			if ex.Code != "" {
				return nil, fmt.Errorf("examples: entry %d: code and code_file are exclusive", i)
			}
			if fsys == nil {
				return nil, fmt.Errorf("examples: entry %d: code_file needs a base directory", i)
			}
			raw, err := fsys.SafeReadFile(ex.CodeFile)
			if err != nil {
				return nil, fmt.Errorf("examples: entry %d: %w", i, err)
			}
			ex.Code = string(raw)
		}
		if strings.TrimSpace(ex.Code) == "" {
			return nil, fmt.Errorf("examples: entry %d: code is required", i)
		}
	}
	return out, nil
}

// Pick returns the example at index i.
func Pick(list []Example, i int) (Example, error) {
	if i < 0 || i >= len(list) {
		return Example{}, fmt.Errorf("examples: index %d out of range (have %d)", i, len(list))
	}
	return list[i], nil
}
