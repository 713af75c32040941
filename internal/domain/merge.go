package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeYAMLDocuments deep-merges override on top of base: maps are merged
// key by key (override wins on conflict, recursing into nested maps); any
// other value type is replaced outright. Either input may be empty.
func mergeYAMLDocuments(base, override []byte) (map[string]any, error) {
	baseMap, err := decodeToMap(base)
	if err != nil {
		return nil, fmt.Errorf("domain: parse base document: %w", err)
	}
	overrideMap, err := decodeToMap(override)
	if err != nil {
		return nil, fmt.Errorf("domain: parse override document: %w", err)
	}
	return mergeMaps(baseMap, overrideMap), nil
}

func decodeToMap(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func mergeMaps(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if baseVal, ok := out[k]; ok {
			if baseChild, ok := asMap(baseVal); ok {
				if overrideChild, ok := asMap(v); ok {
					out[k] = mergeMaps(baseChild, overrideChild)
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// applyEnvOverrides applies every VOICE_AGENT_<SECTION>_<dotted path in caps>
// environment variable whose prefix matches section onto m, setting string
// leaf values at the nested path the suffix describes.
func applyEnvOverrides(section string, m map[string]any) map[string]any {
	prefix := envPrefix + strings.ToUpper(section) + "_"
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, prefix)), "_")
		setPath(m, path, value)
	}
	return m
}

func setPath(m map[string]any, path []string, value string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	child, ok := asMap(m[path[0]])
	if !ok {
		child = map[string]any{}
	}
	setPath(child, path[1:], value)
	m[path[0]] = child
}

// decodeStrict re-marshals m and decodes it into target with unknown-field
// rejection, matching internal/config's decode-then-validate shape.
func decodeStrict(m map[string]any, target any) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("domain: marshal merged document: %w", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("domain: decode merged document: %w", err)
	}
	return nil
}
