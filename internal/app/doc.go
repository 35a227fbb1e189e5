// Package app contains the core application logic. It wires the parameter
// loader, the task graph builder and the executor into one pipeline run,
// decoupled from any specific entrypoint like the CLI.
package app
