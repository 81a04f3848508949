package platform

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"cpuplatd/internal/config"
	"cpuplatd/internal/numa"
)

// Environment variables published for worker processes and compilers.
// Process-wide and not restorable; children inherit them at spawn time.
const (
	EnvWorkerMultiprocMethod  = "VLLM_WORKER_MULTIPROC_METHOD"
	EnvNumexprMaxThreads      = "NUMEXPR_MAX_THREADS"
	EnvOMPNumThreads          = "OMP_NUM_THREADS"
	EnvInductorCompileThreads = "TORCHINDUCTOR_COMPILE_THREADS"
	EnvLocalWorldSize         = "LOCAL_WORLD_SIZE"
)

// setenv is swapped out in tests so they do not mutate the real process
// environment.
var setenv = os.Setenv

// mathLibThreads reports the thread count configured for the host math
// library. Defaults to the schedulable-CPU count.
var mathLibThreads = func() int {
	if n, err := numa.MaxThreads(); err == nil {
		return n
	}
	return runtime.NumCPU()
}

// ApplyEnv publishes the process-wide execution environment derived from
// a resolved configuration. Must run exactly once, after Resolve succeeds
// and strictly before any worker process is spawned. Failure to set a
// variable is a fatal invariant breach.
func ApplyEnv(cfg *config.RuntimeConfig) {
	// Forked workers inherit locked malloc arenas and OpenMP state; spawn
	// is the only safe method here.
	mustSet(EnvWorkerMultiprocMethod, "spawn")

	maxThreads, err := numa.MaxThreads()
	if err != nil {
		maxThreads = runtime.NumCPU()
	}
	mustSet(EnvNumexprMaxThreads, strconv.Itoa(maxThreads))
	mustSet(EnvOMPNumThreads, strconv.Itoa(mathLibThreads()))

	// Background compilation threads do not survive spawn-based workers.
	mustSet(EnvInductorCompileThreads, "1")

	if strings.Contains(os.Getenv("LD_PRELOAD"), "libiomp5.so") {
		// Wait time (ms) before a thread sleeps after a parallel region.
		mustSet("KMP_BLOCKTIME", "1")
		// Keep cores out of low-power pause states.
		mustSet("KMP_TPAUSE", "0")
		mustSet("KMP_FORKJOIN_BARRIER_PATTERN", "dist,dist")
		mustSet("KMP_PLAIN_BARRIER_PATTERN", "dist,dist")
		mustSet("KMP_REDUCTION_BARRIER_PATTERN", "dist,dist")
	}

	// Hints the communicator to use shared-memory collectives.
	mustSet(EnvLocalWorldSize, strconv.Itoa(cfg.Parallel.TensorParallelSize))
}

func mustSet(key, value string) {
	if err := setenv(key, value); err != nil {
		panic(fmt.Sprintf("platform: setenv %s: %v", key, err))
	}
}
