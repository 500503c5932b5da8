package ir

// Version constants for IR schema and tracer.
const (
	// IRVersion is the event/export schema version.
	IRVersion = "1"

	// TracerVersion is the qtrace tracer version.
	TracerVersion = "0.1.0"
)
