// Package numa queries the CPU/NUMA topology available to the current
// process. Discovery runs fresh on every call: CPU affinity can change
// between calls, so callers wanting a stable view must cache it themselves.
package numa

import (
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"cpuplatd/pkg/types"
)

// goos is swapped out in tests to exercise the platform gate.
var goos = runtime.GOOS

// runLscpu executes the topology query. Swapped out in tests.
var runLscpu = func() ([]byte, error) {
	return exec.Command("lscpu", "-J", "-e=CPU,CORE,NODE").Output()
}

// Discover returns the NUMA nodes and logical CPUs the current process is
// allowed to use. Only supported on Linux, where lscpu provides the
// CPU/core/node mapping.
func Discover() (types.Topology, error) {
	if goos != "linux" {
		return types.Topology{}, unsupportedPlatformError{goos: goos}
	}

	out, err := runLscpu()
	if err != nil {
		return types.Topology{}, queryFailedError{op: "lscpu", err: err}
	}
	cpus, err := parseLscpu(out)
	if err != nil {
		return types.Topology{}, err
	}

	allowed, err := affinity()
	if err != nil {
		return types.Topology{}, queryFailedError{op: "sched_getaffinity", err: err}
	}

	topo := types.Topology{}
	nodes := make(map[int]bool)
	for _, c := range cpus {
		if !allowed[c.ID] {
			continue
		}
		topo.CPUs = append(topo.CPUs, c)
		nodes[c.NUMANode] = true
	}
	for n := range nodes {
		topo.Nodes = append(topo.Nodes, n)
	}
	sort.Ints(topo.Nodes)
	return topo, nil
}

// parseLscpu decodes `lscpu -J -e=CPU,CORE,NODE` output. Rows with a
// missing or malformed attribute are dropped, not fatal; lscpu versions
// disagree on whether fields are JSON numbers or strings, so both are
// accepted.
func parseLscpu(out []byte) ([]types.LogicalCPU, error) {
	var doc struct {
		CPUs []map[string]json.RawMessage `json:"cpus"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, queryFailedError{op: "parse lscpu output", err: err}
	}

	var cpus []types.LogicalCPU
	for _, row := range doc.CPUs {
		c := types.LogicalCPU{
			ID:           intField(row, "cpu"),
			PhysicalCore: intField(row, "core"),
			NUMANode:     intField(row, "node"),
		}
		if c.Valid() {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}

// intField parses a row attribute to a non-negative int, returning the
// -1 sentinel when absent or malformed.
func intField(row map[string]json.RawMessage, key string) int {
	raw, ok := row[key]
	if !ok {
		return -1
	}
	s := strings.Trim(string(raw), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// MaxThreads reports how many CPUs the process may schedule threads on:
// the affinity mask size on Linux, the CPU count on darwin.
func MaxThreads() (int, error) {
	switch goos {
	case "linux":
		allowed, err := affinity()
		if err != nil {
			return 0, queryFailedError{op: "sched_getaffinity", err: err}
		}
		return len(allowed), nil
	case "darwin":
		return runtime.NumCPU(), nil
	default:
		return 0, unsupportedPlatformError{goos: goos}
	}
}
