package runner

import (
	"fmt"
	"sort"
	"strings"
)

// buildEnv layers environment maps over a base KEY=VALUE list. Later
// layers win; layered keys come back sorted for determinism.
func buildEnv(base []string, layers ...map[string]string) []string {
	merged := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}

	env := make([]string, 0, len(base)+len(merged))
	for _, kv := range base {
		key, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, overridden := merged[key]; overridden {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// matrixEnv exposes cell values as KESTREL_MATRIX_<AXIS> variables.
func matrixEnv(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	env := make(map[string]string, len(values))
	for k, v := range values {
		env[fmt.Sprintf("KESTREL_MATRIX_%s", envKey(k))] = v
	}
	return env
}

// envKey upper-cases an axis name and replaces anything that is not a
// letter or digit with an underscore.
func envKey(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
