/*
Package workers sizes and runs the bounded worker pools used by the merge
pipeline.

# Sizing

When running in a container the number of usable CPUs may be limited by
cgroup constraints. runtime.NumCPU() returns the host count, while
GOMAXPROCS follows the container limit (Go 1.19+), so the helpers here are
based on GOMAXPROCS:

	numWorkers := workers.ForCPU(4) // one ffmpeg per CPU, at most 4

Operators can pin the count with the MERGE_WORKERS environment variable.
The limit passed by the caller still applies.

# Running

Run fans a fixed number of indexed jobs out over n goroutines and stops
handing out work after the first failure:

	err := workers.Run(ctx, n, len(clips), func(ctx context.Context, i int) error {
		return normalize(ctx, clips[i])
	})

The context passed to the callback is cancelled when any call fails, so
long-running subprocesses started with exec.CommandContext are killed.
Run returns only after every started call has returned.
*/
package workers
