package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func parseJSON(text string, _ map[string]string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(text))
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return value, nil
}

func parseJSONLines(text string, _ map[string]string) (any, error) {
	lines := nonEmptyLines(text)
	out := make([]any, 0, len(lines))
	for i, line := range lines {
		var value any
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, value)
	}
	return out, nil
}

// parseYAML returns a single document as-is and several documents as a
// list, matching `kubectl get -o yaml` and multi-manifest output.
func parseYAML(text string, _ map[string]string) (any, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	docs := make([]any, 0, 1)
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	converted, err := toJSONTree(docs)
	if err != nil {
		return nil, err
	}
	list := converted.([]any)
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	default:
		return list, nil
	}
}

func parseTOML(text string, _ map[string]string) (any, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	return toJSONTree(doc)
}

// toJSONTree rewrites decoder output into the shapes encoding/json would
// produce: string-keyed maps, float64 numbers and RFC 3339 timestamps.
func toJSONTree(value any) (any, error) {
	data, err := json.Marshal(stringKeys(value))
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringKeys(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = stringKeys(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = stringKeys(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stringKeys(item)
		}
		return out
	default:
		return v
	}
}
