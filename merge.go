package rest

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// deepMerge returns dst with src merged in. Nested objects merge key by
// key; any other value in src replaces the one in dst. Neither input is
// modified.
func deepMerge(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			out[k] = v
			continue
		}
		if prev, ok := out[k].(map[string]any); ok {
			out[k] = deepMerge(prev, sub)
		} else {
			out[k] = deepMerge(nil, sub)
		}
	}
	return out
}

// toMap returns the JSON object form of v.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var statusRangeRe = regexp.MustCompile(`^[1-5]XX$`)

// statusByName maps upper-snake status names such as NOT_FOUND to codes.
var statusByName = func() map[string]int {
	m := make(map[string]int)
	for code := 100; code < 600; code++ {
		if text := http.StatusText(code); text != "" {
			m[statusName(code)] = code
		}
	}
	return m
}()

// statusName returns the upper-snake name of a status: 404 is NOT_FOUND.
func statusName(code int) string {
	text := strings.ReplaceAll(http.StatusText(code), "'", "")
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(text))
}

// canonStatus converts a response key to its documented form: a decimal
// status, a range such as "4XX", or "default".
func canonStatus(key any) (string, error) {
	switch k := key.(type) {
	case int:
		return checkStatus(k)
	case float64:
		if k != float64(int(k)) {
			break
		}
		return checkStatus(int(k))
	case string:
		if k == "default" {
			return k, nil
		}
		if n, err := strconv.Atoi(k); err == nil {
			return checkStatus(n)
		}
		upper := strings.ToUpper(k)
		if statusRangeRe.MatchString(upper) {
			return upper, nil
		}
		if code, ok := statusByName[upper]; ok {
			return strconv.Itoa(code), nil
		}
	}
	return "", fmt.Errorf("unknown response status %v", key)
}

func checkStatus(code int) (string, error) {
	if code < 100 || code > 599 {
		return "", fmt.Errorf("invalid response status %d", code)
	}
	return strconv.Itoa(code), nil
}

// canonResponses rewrites the keys of a responses object to their
// canonical form. Two keys naming the same status are an error.
func canonResponses(responses map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(responses))
	from := make(map[string]string, len(responses))
	for _, key := range slices.Sorted(maps.Keys(responses)) {
		canon, err := canonStatus(key)
		if err != nil {
			return nil, err
		}
		if prev, dup := from[canon]; dup {
			return nil, fmt.Errorf("response keys %q and %q both document status %s", prev, key, canon)
		}
		from[canon] = key
		out[canon] = responses[key]
	}
	return out, nil
}
