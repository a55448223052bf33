package ast

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Standard errors
var (
	// ErrNodeNotFound is returned when a trace does not address a node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnknownNode is returned when a script document names a node type
	// this package does not know.
	ErrUnknownNode = errors.New("unknown node type")
)

// ParseError reports a malformed script document. It is surfaced before any
// frame exists and is fatal to agent creation.
type ParseError struct {
	// Path locates the offending node, e.g. "body[2].expr.args[0]".
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "parse: " + e.Message
	}
	return "parse " + e.Path + ": " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Script is an immutable parsed program plus, optionally, the source text it
// was parsed from. It is never mutated after construction.
type Script struct {
	AST    *Program
	Source string
}

// NewScript wraps a statement list.
func NewScript(source string, body ...Statement) *Script {
	return &Script{AST: &Program{Body: body}, Source: source}
}

// Code returns the canonical JSON document of the script. It is what agents
// persist so a script can be restored without the original parser.
func (s *Script) Code() (string, error) {
	data, err := Encode(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Hash is the hex SHA-256 of the canonical document.
func (s *Script) Hash() (string, error) {
	code, err := s.Code()
	if err != nil {
		return "", err
	}
	return HashCode(code), nil
}

// HashCode hashes an already encoded script document.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// LoadFile reads a script document from disk. Files ending in .yaml or .yml
// are decoded as YAML, everything else as JSON.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return Decode(data)
	}
}
