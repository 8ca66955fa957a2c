/*
Package workers determines worker pool sizes in containerized
environments.

Go 1.19+ sets GOMAXPROCS from container CPU limits, while
runtime.NumCPU() still reports the host's count. The helpers here size
pools from GOMAXPROCS so frame encoding respects cgroup constraints:

	// Encoding is CPU-bound: one worker per available CPU, max 4.
	n := workers.ForCPU(4)

The ENCODE_WORKERS environment variable overrides the calculation,
which is useful when tuning a deployment without rebuilding.
*/
package workers
