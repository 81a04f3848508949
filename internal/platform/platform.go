// Package platform implements capability negotiation and configuration
// resolution for the CPU execution backend: which precisions and attention
// kernels the host supports, and how to rewrite a loosely specified
// runtime configuration into one the backend can actually execute.
package platform

// Fixed identity of this backend.
const (
	DeviceType  = "cpu"
	DistBackend = "gloo"
)

// DefaultMaxNumBatchedTokens is the floor applied to the batched-token
// budget when MLA forces whole-sequence scheduling.
const DefaultMaxNumBatchedTokens = 2048

// Dtype identifies a numeric precision the backend can compute in.
type Dtype string

const (
	BFloat16 Dtype = "bfloat16"
	Float16  Dtype = "float16"
	Float32  Dtype = "float32"
)

// SupportedDtypes reports the precisions usable for the given CPU
// architecture (GOARCH form) and operating system (GOOS form). This is a
// static toolchain table, not a hardware probe, and must track what the
// kernel build actually enables.
func SupportedDtypes(arch, os string) []Dtype {
	switch {
	case arch == "ppc64" || arch == "ppc64le":
		return []Dtype{BFloat16, Float32}
	case (arch == "arm64" || arch == "arm") && os == "darwin":
		// The darwin/arm toolchain does not expose accelerated bf16 yet,
		// even where the silicon could.
		return []Dtype{Float16, Float32}
	default:
		// x86 and generic arm have native bf16 and fp16 paths.
		return []Dtype{BFloat16, Float16, Float32}
	}
}
