package rest

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Converter maps a typed path placeholder to its documented type and
// optionally restricts which segments match it at runtime.
type Converter struct {
	Type   string
	Format string
	// Match rejects values that do not fit the converter; the request then
	// answers 404 as if no route matched. Nil accepts anything.
	Match func(string) bool
	// Wildcard converters capture the rest of the path, slashes included.
	Wildcard bool
}

// isUUID accepts the canonical 36 character form only.
func isUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

func defaultConverters() map[string]Converter {
	return map[string]Converter{
		"string": {Type: "string"},
		"int": {Type: "integer", Format: "int32", Match: func(s string) bool {
			_, err := strconv.ParseInt(s, 10, 32)
			return err == nil
		}},
		"float": {Type: "number", Format: "float", Match: func(s string) bool {
			_, err := strconv.ParseFloat(s, 64)
			return err == nil
		}},
		"uuid": {Type: "string", Format: "uuid", Match: isUUID},
		"path": {Type: "string", Wildcard: true},
	}
}

// placeholder is one {name} or {name:converter} segment of a route pattern.
type placeholder struct {
	name      string
	converter string
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?::([A-Za-z_][A-Za-z0-9_]*))?\}`)

// parsedPattern is a route pattern split into its mux, documentation and
// placeholder forms.
type parsedPattern struct {
	mux          string
	doc          string
	placeholders []placeholder
}

// parsePattern turns "/pets/{pet_id:int}/" into the mux pattern
// "/pets/{pet_id}/{$}" and the documented path "/pets/{pet_id}/".
func parsePattern(pattern string, converters map[string]Converter) parsedPattern {
	var p parsedPattern
	for _, m := range placeholderRe.FindAllStringSubmatch(pattern, -1) {
		conv := m[2]
		if conv == "" {
			conv = "string"
		}
		p.placeholders = append(p.placeholders, placeholder{name: m[1], converter: conv})
	}

	p.doc = placeholderRe.ReplaceAllString(pattern, "{$1}")
	p.mux = placeholderRe.ReplaceAllStringFunc(pattern, func(s string) string {
		m := placeholderRe.FindStringSubmatch(s)
		if c, ok := converters[m[2]]; ok && c.Wildcard {
			return "{" + m[1] + "...}"
		}
		return "{" + m[1] + "}"
	})
	if strings.HasSuffix(p.mux, "/") {
		p.mux += "{$}"
	}
	return p
}

// checkPlaceholders reports unknown converters and misplaced wildcards.
func checkPlaceholders(endpoint string, p parsedPattern, converters map[string]Converter) error {
	seen := make(map[string]bool, len(p.placeholders))
	for i, ph := range p.placeholders {
		c, ok := converters[ph.converter]
		if !ok {
			return configErrorf(endpoint, "unknown path converter %q for parameter %q (known: %s)",
				ph.converter, ph.name, strings.Join(slices.Sorted(maps.Keys(converters)), ", "))
		}
		if seen[ph.name] {
			return configErrorf(endpoint, "duplicate path parameter %q", ph.name)
		}
		seen[ph.name] = true
		if c.Wildcard && (i != len(p.placeholders)-1 || !strings.HasSuffix(p.doc, "{"+ph.name+"}")) {
			return configErrorf(endpoint, "wildcard parameter %q must end the path", ph.name)
		}
	}
	return nil
}
