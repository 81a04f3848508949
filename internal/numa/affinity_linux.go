//go:build linux

package numa

import "golang.org/x/sys/unix"

// maxCPUs matches the kernel cpu_set_t size.
const maxCPUs = 1024

// affinity returns the set of logical CPU ids the current process may run
// on. Swapped out in tests.
var affinity = func() (map[int]bool, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	ids := make(map[int]bool)
	for i := 0; i < maxCPUs; i++ {
		if set.IsSet(i) {
			ids[i] = true
		}
	}
	return ids, nil
}
