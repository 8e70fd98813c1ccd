package rest

// SelfValidator is implemented by schema types that validate themselves
// after field-level checks pass. Returning a *ValidationError reports
// field messages as is; any other error is reported under "_schema".
type SelfValidator interface {
	Validate() error
}
