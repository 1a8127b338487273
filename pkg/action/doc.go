// Package action defines the descriptor type for build actions emitted by
// the upstream action parser.
//
// A Descriptor is an immutable description of one unit of work: an operation
// kind, a unique operation ID derived from the (artifact, action) pair, and,
// for file operations only, the normalized path the operation targets.
// Descriptors carry no execution logic; the coordinator schedules them and
// caller-supplied callbacks perform the work.
package action
