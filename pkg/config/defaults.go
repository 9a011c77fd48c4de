package config

// Build defaults.
const (
	DefaultA        = 4
	DefaultB        = 2
	DefaultWidth    = 4
	DefaultFormat   = "raw"
	DefaultMetadata = "json"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Observability defaults.
const (
	DefaultSampleRatio = 1.0
	DefaultEnvironment = "development"
)

// Accepted values.
var (
	widths          = []int{4, 8}
	formats         = []string{"raw", "compressed"}
	metadataFormats = []string{"json", "yaml", "none"}
	logFormats      = []string{"text", "json"}
)
