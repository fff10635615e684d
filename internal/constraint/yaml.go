package constraint

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a constraint file. The document is either a single
// tagged mapping or a sequence of them. YAML is converted to the JSON form
// first so both encodings share one set of field names and checks.
func ParseYAML(data []byte) ([]Spec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}
	tree, err := jsonTree(doc)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, ok := tree.([]any); ok {
		var specs []Spec
		if err := json.Unmarshal(raw, &specs); err != nil {
			return nil, err
		}
		return specs, nil
	}
	s, err := ParseJSON(raw)
	if err != nil {
		return nil, err
	}
	return []Spec{s}, nil
}

// jsonTree rewrites yaml.v3's generic values into types encoding/json can
// marshal: mapping keys must be strings.
func jsonTree(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			c, err := jsonTree(e)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string key %v", ErrInvalidConfig, k)
			}
			c, err := jsonTree(e)
			if err != nil {
				return nil, err
			}
			out[ks] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			c, err := jsonTree(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}
