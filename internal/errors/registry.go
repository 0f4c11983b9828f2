package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// Configuration (FH100-FH119)
	"FH100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "framehook.yaml or framehook.json could not be parsed.",
	},
	"FH101": {
		Category: CategoryConfig,
		Message:  "Invalid frame rate",
		Detail:   "The frame rate must be a positive number of frames per second.",
	},
	"FH102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range.",
	},
	"FH103": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file exists but could not be read.",
	},

	// Runtime (FH120-FH139)
	"FH120": {
		Category: CategoryRuntime,
		Message:  "Failed to attach consumer",
		Detail:   "The registry refused a new consumer.",
	},
	"FH121": {
		Category: CategoryRuntime,
		Message:  "Failed to add listener",
		Detail:   "The consumer refused a new listener.",
	},

	// Debug server (FH140-FH159)
	"FH140": {
		Category: CategoryServer,
		Message:  "Debug server failed",
		Detail:   "The debug HTTP server stopped with an error.",
	},

	// Trace export (FH160-FH179)
	"FH160": {
		Category: CategoryExport,
		Message:  "Trace upload failed",
		Detail:   "The recorded frame timeline could not be written to S3.",
	},
	"FH161": {
		Category: CategoryExport,
		Message:  "S3 client unavailable",
		Detail:   "An S3 client could not be created from the environment.",
	},

	// CLI (FH180-FH199)
	"FH180": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command line flag has an invalid value.",
	},
}

// Codes returns all registered codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
