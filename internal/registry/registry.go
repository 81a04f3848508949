// Package registry maps symbolic collaborator names to the concrete
// implementation identifiers the host runtime resolves at load time.
// The tables are closed: the platform layer only ever emits identifiers
// registered here, so its decisions can be checked exhaustively without
// the implementations existing.
package registry

import (
	"fmt"
	"sort"
)

// Kind groups the collaborator classes the platform selects between.
type Kind string

const (
	KindAttention    Kind = "attention"
	KindCommunicator Kind = "communicator"
	KindLoRAWrapper  Kind = "lora-wrapper"
	KindWorker       Kind = "worker"
)

// Well-known symbolic names.
const (
	// BackendSDPA is the only attention backend this platform implements.
	BackendSDPA = "sdpa"
	// WorkerAuto asks the platform to bind the worker implementation.
	WorkerAuto = "auto"
)

var table = map[Kind]map[string]string{
	KindAttention: {
		BackendSDPA: "cpuplat.attention.torch-sdpa",
	},
	KindCommunicator: {
		"shm": "cpuplat.comm.shm-gloo",
	},
	KindLoRAWrapper: {
		"punica": "cpuplat.lora.punica-cpu",
	},
	KindWorker: {
		"cpu": "cpuplat.worker.cpu",
	},
}

// Lookup resolves a symbolic name of the given kind to its implementation
// identifier.
func Lookup(kind Kind, name string) (string, bool) {
	id, ok := table[kind][name]
	return id, ok
}

// MustLookup is Lookup for names the platform itself emits; an unknown
// name is a programming error.
func MustLookup(kind Kind, name string) string {
	id, ok := Lookup(kind, name)
	if !ok {
		panic(fmt.Sprintf("registry: unknown %s %q", kind, name))
	}
	return id
}

// Names lists the registered symbolic names of a kind, sorted.
func Names(kind Kind) []string {
	var names []string
	for n := range table[kind] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
