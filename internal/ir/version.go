package ir

// Version constants for the model schema and the compiler.
const (
	// IRVersion is the model schema version stored with every catalog row.
	IRVersion = "1"

	// CompilerVersion is the crossbind compiler version.
	CompilerVersion = "0.1.0"
)
