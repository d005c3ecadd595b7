// Package statepath implements a hierarchical statechart runtime: given a
// declarative Design describing nested states, guarded handler chains,
// timed repeats and asynchronous work, it builds a tree of state nodes and
// drives a live Instance that processes events serially, maintains the
// active-state set, runs entry/exit side effects, and notifies subscribers.
//
// Construction happens once, via NewInstance. Everything after that runs
// through a single-threaded-cooperative send-queue: Send enqueues an event
// and returns once the queue has fully drained, so handler chains never
// observe a torn or concurrently-mutated Instance.
package statepath
