// Package pipeline dispatches decoded build actions through the execution
// coordinator.
//
// The pipeline owns no execution mechanics: callers register one Runner per
// action kind (file writer, shell runner, process starter, build runner,
// migration client) and the pipeline wraps each runner invocation into the
// coordinator callback, submitting independent actions concurrently.
package pipeline
