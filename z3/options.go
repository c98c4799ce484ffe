package z3

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Options are engine parameters, passed to the engine verbatim when an
// Environment is created. The engine decides which keys it accepts.
type Options map[string]string

// Keys returns the option names in sorted order.
func (o Options) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadOptions decodes a YAML mapping into Options. Nested mappings are
// flattened with dots, so
//
//	bounded:
//	  width: 4
//
// yields "bounded.width" = "4". Scalars keep their source spelling.
func LoadOptions(r io.Reader) (Options, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Options{}, nil
		}
		return nil, fmt.Errorf("z3: decode options: %w", err)
	}
	opts := Options{}
	if len(doc.Content) == 0 {
		return opts, nil
	}
	if err := flatten(opts, "", doc.Content[0]); err != nil {
		return nil, err
	}
	return opts, nil
}

// LoadOptionsFile reads Options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadOptions(f)
}

func flatten(opts Options, prefix string, n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			key := k.Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(opts, key, v); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("z3: options: line %d: expected a mapping", n.Line)
		}
		opts[prefix] = strings.TrimSpace(n.Value)
		return nil
	case yaml.AliasNode:
		return flatten(opts, prefix, n.Alias)
	}
	return fmt.Errorf("z3: options: line %d: unsupported value for %q", n.Line, prefix)
}
