// Package coach implements a checkpointed workflow engine that walks a
// user's financial-aid coaching thread through a directed graph of nodes.
//
// Each node reads the thread's versioned state and returns a new state plus
// a routing decision. The engine persists a checkpoint after every node, so
// any thread can resume after a process restart or a missed trigger solely
// from its last checkpoint and the node registry. Compare-and-swap on the
// checkpoint version is the only concurrency control: when two processes
// advance the same thread, exactly one wins and the other aborts cleanly.
package coach
