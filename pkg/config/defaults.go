package config

// Index defaults.
const (
	DefaultCharUnit             = "utf16"
	DefaultValidateOnCommit     = false
	DefaultHibernationThreshold = 0
	DefaultShards               = 4
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Bench defaults.
const (
	DefaultBenchNodes    = 10000
	DefaultBenchAccesses = 100000
	DefaultBenchSeed     = 1
)

// Metrics defaults. An empty address disables the Prometheus endpoint and an
// empty endpoint disables OTLP export.
const (
	DefaultMetricsAddr  = ""
	DefaultOTLPEndpoint = ""
	DefaultServiceName  = "symtree"
)
