package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/modules/org/seed"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitRemote, errors.Wrap(err, "json encode"))
	}
	return nil
}

func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return withCode(exitRemote, errors.Wrapf(err, "mkdir %s", dir))
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return withCode(exitRemote, errors.Wrapf(err, "write %s", path))
	}
	return nil
}

// loadTree reads any seed format and validates it. Unreadable files are a
// usage error, malformed or invalid trees a validation error.
func loadTree(path string) (*orgtree.Employee, error) {
	if strings.TrimSpace(path) == "" {
		return nil, withCode(exitUsage, errors.New("--file is required"))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "read %s", path))
	}
	root, err := seed.Load(path)
	if err != nil {
		return nil, withCode(exitValidation, errors.Wrapf(err, "load %s", path))
	}
	return root, nil
}

func marshalTree(root *orgtree.Employee) ([]byte, error) {
	b, err := json.MarshalIndent(orgtree.ToNode(root), "", "  ")
	if err != nil {
		return nil, withCode(exitValidation, errors.Wrap(err, "json marshal"))
	}
	return b, nil
}
