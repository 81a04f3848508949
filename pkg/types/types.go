package types

// LogicalCPU describes one schedulable execution unit as seen by the OS:
// its logical id, the physical core backing it, and the NUMA node its
// local memory hangs off. -1 means the attribute could not be determined.
type LogicalCPU struct {
	ID           int `json:"cpu"`
	PhysicalCore int `json:"core"`
	NUMANode     int `json:"node"`
}

// Valid reports whether every attribute was resolved.
func (c LogicalCPU) Valid() bool {
	return c.ID >= 0 && c.PhysicalCore >= 0 && c.NUMANode >= 0
}

// Topology is the CPU landscape available to the current process after
// applying its affinity mask.
type Topology struct {
	// NUMA node ids touched by at least one allowed CPU, sorted ascending.
	Nodes []int `json:"nodes"`
	// Allowed logical CPUs with fully resolved attributes.
	CPUs []LogicalCPU `json:"cpus"`
}

// Correction records one compatibility rewrite the resolver applied to a
// configuration instead of rejecting it.
type Correction struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ResolveReport summarizes what a resolution pass changed. An already
// resolved configuration produces an empty report.
type ResolveReport struct {
	Corrections []Correction `json:"corrections,omitempty"`
}
