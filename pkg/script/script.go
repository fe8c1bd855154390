// Package script runs YAML scenario scripts against a symtree document.
//
// A script is a list of steps. Each step performs one index operation and
// optionally checks its result:
//
//	steps:
//	  - op: build
//	    outline: [{kind: run, text: "hello"}]
//	  - op: insert
//	    at: 5
//	    content: {kind: boundary, chars: 1}
//	    as: mark
//	  - op: offset
//	    node: mark
//	    expect: 5
//
// Scripts are checked against an embedded JSON schema before they run.
package script

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

//go:embed schema.json
var schemaJSON []byte

var (
	// ErrInvalidScript is returned for scripts that do not match the schema.
	ErrInvalidScript = errors.New("invalid script")
	// ErrUnknownLabel is returned for a node or navigator label never assigned.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrExpectation marks a step whose result differs from its expect value.
	ErrExpectation = errors.New("expectation failed")
)

// Script is a parsed scenario.
type Script struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Options     Options `yaml:"options"`
	Steps       []Step  `yaml:"steps"`
}

// Options override the tree options for one script.
type Options struct {
	CharUnit         string `yaml:"char_unit"`
	ValidateOnCommit bool   `yaml:"validate_on_commit"`
}

// Step is one operation.
type Step struct {
	Op      string            `yaml:"op"`
	At      *Ref              `yaml:"at"`
	To      *Ref              `yaml:"to"`
	Node    string            `yaml:"node"`
	Nav     string            `yaml:"nav"`
	As      string            `yaml:"as"`
	Dir     string            `yaml:"dir"`
	Gravity string            `yaml:"gravity"`
	Content *symtree.Outline  `yaml:"content"`
	Outline []symtree.Outline `yaml:"outline"`
	Expect  any               `yaml:"expect"`
	Error   string            `yaml:"error"`
}

// Ref denotes a position: either a bare document offset, or a labeled node
// with an edge (start, end) or an intra-node offset.
type Ref struct {
	Offset *int   `yaml:"-"`
	Node   string `yaml:"node"`
	Edge   string `yaml:"edge"`
	Local  *int   `yaml:"offset"`
}

// UnmarshalYAML accepts an integer or a mapping.
func (ref *Ref) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var offset int

		err := value.Decode(&offset)
		if err != nil {
			return fmt.Errorf("position offset: %w", err)
		}

		ref.Offset = &offset

		return nil
	}

	type plain Ref

	return value.Decode((*plain)(ref))
}

func (ref *Ref) String() string {
	switch {
	case ref.Offset != nil:
		return fmt.Sprintf("@%d", *ref.Offset)
	case ref.Edge != "":
		return ref.Node + "." + ref.Edge
	case ref.Local != nil:
		return fmt.Sprintf("%s+%d", ref.Node, *ref.Local)
	default:
		return ref.Node
	}
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sc, nil
}

// Parse validates data against the script schema and decodes it.
func Parse(data []byte) (*Script, error) {
	var raw any

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, verr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(problems, "; "))
	}

	var sc Script

	err = yaml.Unmarshal(data, &sc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	return &sc, nil
}

var errorNames = map[string]error{
	"invalid_position": symtree.ErrInvalidPosition,
	"stale_node":       symtree.ErrStaleNode,
	"foreign_node":     symtree.ErrForeignNode,
	"root_removal":     symtree.ErrRootRemoval,
	"cross_container":  symtree.ErrCrossContainer,
	"empty_content":    symtree.ErrEmptyContent,
	"invalid_content":  symtree.ErrInvalidContent,
	"not_container":    symtree.ErrNotContainer,
	"no_open_scope":    symtree.ErrNoOpenScope,
	"unknown_kind":     symtree.ErrUnknownKind,
}
