// Package config defines the format-agnostic run configuration: the broad
// Run settings that come from the command line and the per-task Params that
// come from a parameter file. Concrete file formats live in separate
// packages that implement Loader.
package config
