package config

import "context"

// Variables are exposed to parameter file expressions.
type Variables struct {
	BidsDataDir    string
	DerivativesDir string
	Nproc          int
}

// Loader is the interface for a format-specific parameter file loader.
type Loader interface {
	// Load reads the parameter file at path. An empty path yields zero Params,
	// which ApplyDefaults then fills.
	Load(ctx context.Context, path string, vars Variables) (*Params, error)
}
