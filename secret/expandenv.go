package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands `${VAR}` references in s from the environment.
//
// Semantics:
//   - Only the braced form is expanded. A bare `$` is left alone so that
//     passwords and DSNs containing dollars survive unchanged.
//   - A referenced variable missing from the environment is an error naming
//     every missing variable.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	return expandWith(s, os.LookupEnv)
}

func expandWith(s string, lookup func(string) (string, bool)) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	const dollar = "\x00DATACONN_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	seen := make(map[string]bool)
	out := envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-1]
		v, ok := lookup(key)
		if !ok {
			if !seen[key] {
				seen[key] = true
				missing = append(missing, key)
			}
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("secret: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return strings.ReplaceAll(out, dollar, "$"), nil
}
