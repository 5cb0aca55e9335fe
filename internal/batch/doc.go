// Package batch turns a set of images into 3D models with bounded
// concurrency.
//
// A Runner takes the output directory's lock, assigns a run ID, and then
// drives every image through submit, wait and download on its own goroutine.
// At most MaxConcurrent run at once, matching the service's limit on
// simultaneous generations. One image failing does not stop the others; the
// Summary reports every outcome. When a Recorder is configured each
// submission and status change is written to the jobs ledger under the run
// ID.
package batch
