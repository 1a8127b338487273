// Package coordinator executes build actions with per-resource serialization
// and cross-resource parallelism.
//
// Invariants:
//   - Operations against the same resource key execute in submission order,
//     never overlapping.
//   - Shell, start, build and schema operations share one global lane with
//     strict FIFO order and no overlap among themselves.
//   - Operations on distinct resource keys, and operations in the global lane
//     versus resource queues, may run concurrently. The global lane does not
//     quiesce resource queues; a shell command that touches a file being
//     written concurrently is not protected against.
//   - A failed callback never blocks its successors on the same lane.
//
// Usage:
//
//	coord := coordinator.New(coordinator.Options{Logger: logger})
//	err := coord.Execute(ctx, desc, func(ctx context.Context) error {
//		return writeFile(ctx, desc.ResourceKey, content)
//	})
package coordinator
