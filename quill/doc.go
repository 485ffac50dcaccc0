// Package quill implements the execution runtime core for the Quill
// embedded interpreter. It provides the pieces a tree-walking evaluator
// needs to run a program:
//   - An execution Context owning the call stack, variable scopes,
//     status and timing, and all instrumentation state.
//   - Frames with lexical parent references resolved against the live
//     call stack, so captured scopes sever correctly when popped.
//   - A structured Error taxonomy with conversion from arbitrary Go
//     errors.
//   - An event bus with a per-kind bitmask, bounded history, and
//     self-pruning subscribers.
//   - A Debugger with breakpoints, step mode, and a synchronous
//     single-key pause loop for interactive inspection.
//   - The Handler contract used to dispatch primitive operations, with
//     CoreHandler covering the typed-value operation families.
//
// The surface grammar and the evaluator itself live outside this
// package; hosts push and pop frames around activations, call
// Debugger.MaybeStep at points of interest, and route primitive
// operations through a Registry.
package quill
