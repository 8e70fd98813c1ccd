package rest

// Test-only exports for internal functions.
var (
	SplitDocstring = splitDocstring
	DeepMerge      = deepMerge
	CanonStatus    = canonStatus
	StatusName     = statusName
	ComputeETag    = computeETag
	TagOptions     = tagOptions
	JSONFieldName  = jsonFieldName
)
