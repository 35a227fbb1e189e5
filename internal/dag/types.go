package dag

import (
	"sync"
)

// Graph is the bare dependency structure of a plan, keyed by node id. All
// operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*vertex
}

type vertex struct {
	id         string
	deps       map[string]*vertex
	dependents map[string]*vertex
}
