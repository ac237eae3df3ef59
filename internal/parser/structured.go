package parser

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/pdfmarks/internal/doctree"
	"gopkg.in/yaml.v3"
)

// JSONParser reads the native snapshot format written by the JSON writer.
// Pages are zero-based.
type JSONParser struct{}

func (p *JSONParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	var tree doctree.DocTree
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("parse json outline: %w", err)
	}
	if tree.Title == "" {
		tree.Title = titleFromFilename(filename)
	}
	return &tree, nil
}

// YAMLParser reads the same shape as JSONParser from YAML.
type YAMLParser struct{}

func (p *YAMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	var tree doctree.DocTree
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse yaml outline: %w", err)
	}
	if tree.Title == "" {
		tree.Title = titleFromFilename(filename)
	}
	return &tree, nil
}
