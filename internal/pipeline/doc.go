// Package pipeline orchestrates volume compilation as an ordered
// sequence of steps sharing one CompileResult, and runs independent
// volumes concurrently through the batch processor.
//
// A step failure is fatal for its volume by default; the batch keeps
// results for failed volumes so the run summary can name them.
package pipeline
