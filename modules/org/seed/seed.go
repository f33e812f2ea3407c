// Package seed provides the tree the service starts with.
package seed

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/organi-flow/modules/org/domain/orgtree"
	"github.com/iota-uz/organi-flow/pkg/constants"
)

var ErrUnsupportedFormat = errors.New("unsupported seed format")

// Default is the single-employee tree used when no seed file is configured.
func Default() *orgtree.Employee {
	return &orgtree.Employee{
		ID:        1,
		Name:      "John Smith",
		Title:     "CEO",
		ManagerID: orgtree.RootManagerID,
		Children:  []*orgtree.Employee{},
	}
}

// Load reads a nested tree or an {employees: [...]} roster from path. The
// format follows the file extension: .json, .yaml, .yml or .toml.
func Load(path string) (*orgtree.Employee, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed")
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes raw according to ext and validates the resulting tree.
func Parse(raw []byte, ext string) (*orgtree.Employee, error) {
	doc, err := normalize(raw, strings.ToLower(ext))
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, errors.Wrap(err, "seed must be an object")
	}

	var root *orgtree.Employee
	if _, ok := probe["employees"]; ok {
		root, err = decodeRoster(doc)
	} else {
		root, err = decodeTree(doc)
	}
	if err != nil {
		return nil, err
	}
	if err := orgtree.Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

// normalize converts yaml and toml documents into JSON so every format goes
// through the same wire types.
func normalize(raw []byte, ext string) ([]byte, error) {
	switch ext {
	case ".json":
		return raw, nil
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "parse yaml seed")
		}
		return marshal(v)
	case ".toml":
		var v map[string]any
		if _, err := toml.Decode(string(raw), &v); err != nil {
			return nil, errors.Wrap(err, "parse toml seed")
		}
		return marshal(v)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", ext)
	}
}

func marshal(v any) ([]byte, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "re-encode seed")
	}
	return out, nil
}

func strictDecode(doc []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode seed")
	}
	if err := constants.Validate.Struct(dst); err != nil {
		return errors.Wrap(err, "validate seed")
	}
	return nil
}

func decodeTree(doc []byte) (*orgtree.Employee, error) {
	var node orgtree.Node
	if err := strictDecode(doc, &node); err != nil {
		return nil, err
	}
	return orgtree.FromNode(&node)
}

func decodeRoster(doc []byte) (*orgtree.Employee, error) {
	var roster orgtree.RosterDocument
	if err := strictDecode(doc, &roster); err != nil {
		return nil, err
	}
	return orgtree.FromRoster(roster.Members())
}
