// Package dag plans and executes the task graph of a run.
//
// The Builder expands one request per batch into a tree of task nodes,
// resolving parameters, strategies and output names as it goes, then merges
// the trees into a graph with one node per fingerprint. The Executor walks
// that graph with a bounded worker pool. A node whose declared outputs all
// exist is skipped; a failed node fails its transitive dependents and
// nothing else.
package dag
