package rest

// Location identifies where in a request an argument is read from.
type Location string

const (
	LocationJSON    Location = "json"
	LocationQuery   Location = "query"
	LocationPath    Location = "path"
	LocationForm    Location = "form"
	LocationHeaders Location = "headers"
	LocationCookies Location = "cookies"
	LocationFiles   Location = "files"
)

// Locations lists every supported location.
var Locations = []Location{
	LocationJSON, LocationQuery, LocationPath, LocationForm,
	LocationHeaders, LocationCookies, LocationFiles,
}

// Valid reports whether l is a known location.
func (l Location) Valid() bool {
	for _, known := range Locations {
		if l == known {
			return true
		}
	}
	return false
}

// BodyBearing reports whether l is read from the request body.
// At most one body-bearing argument is allowed per endpoint.
func (l Location) BodyBearing() bool {
	return l == LocationJSON || l == LocationForm || l == LocationFiles
}

// openAPIIn returns the OpenAPI "in" value for a non-body location.
func (l Location) openAPIIn() string {
	//exhaustive:ignore
	switch l {
	case LocationHeaders:
		return "header"
	case LocationCookies:
		return "cookie"
	case LocationForm, LocationFiles:
		return "formData"
	default:
		return string(l)
	}
}

// UnknownPolicy decides what happens to input fields the schema does not declare.
type UnknownPolicy int

const (
	// UnknownDefault defers to the location default.
	UnknownDefault UnknownPolicy = iota
	// UnknownExclude silently drops unknown fields.
	UnknownExclude
	// UnknownRaise rejects unknown fields with a validation error. For JSON
	// bodies it applies to nested objects too.
	UnknownRaise
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownExclude:
		return "exclude"
	case UnknownRaise:
		return "raise"
	default:
		return "default"
	}
}

// parseUnknownPolicy maps a config value to a policy.
func parseUnknownPolicy(s string) (UnknownPolicy, bool) {
	switch s {
	case "exclude", "EXCLUDE":
		return UnknownExclude, true
	case "raise", "RAISE":
		return UnknownRaise, true
	default:
		return UnknownDefault, false
	}
}

// defaultUnknownPolicies applies exclude to flat locations and raise to
// locations that may carry nested structures.
func defaultUnknownPolicies() map[Location]UnknownPolicy {
	return map[Location]UnknownPolicy{
		LocationJSON:    UnknownRaise,
		LocationForm:    UnknownRaise,
		LocationQuery:   UnknownExclude,
		LocationPath:    UnknownExclude,
		LocationHeaders: UnknownExclude,
		LocationCookies: UnknownExclude,
		LocationFiles:   UnknownExclude,
	}
}

func defaultLocationContentTypes() map[Location]string {
	return map[Location]string{
		LocationJSON:  "application/json",
		LocationForm:  "application/x-www-form-urlencoded",
		LocationFiles: "multipart/form-data",
	}
}
