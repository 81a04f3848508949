// Package config defines the runtime configuration aggregate resolved by
// the CPU platform layer, plus file loading for it.
package config

// Model dtype names.
const (
	DtypeAuto     = "auto"
	DtypeFloat16  = "float16"
	DtypeBFloat16 = "bfloat16"
	DtypeFloat32  = "float32"
)

// KV-cache dtype names. "auto" follows the model dtype; the fp8 variants
// select an 8-bit cache layout.
const (
	CacheDtypeAuto    = "auto"
	CacheDtypeFP8E4M3 = "fp8_e4m3"
	CacheDtypeFP8E5M2 = "fp8_e5m2"
)

// Compilation pipeline levels, ordered by aggressiveness.
const (
	CompileNone       = 0
	CompileDynamoAsIs = 1
	CompileDynamoOnce = 2
	CompilePiecewise  = 3
)

// Compiler backend names.
const (
	CompileBackendEager    = "eager"
	CompileBackendInductor = "inductor"
)

// ModelConfig describes the model being served.
type ModelConfig struct {
	// Numeric precision of the model weights/activations.
	Dtype string `json:"dtype" yaml:"dtype" toml:"dtype"`
	// Whether the model uses multi-head latent attention.
	UseMLA bool `json:"use_mla" yaml:"use_mla" toml:"use_mla"`
	// Cascade attention is a GPU-side optimization; forced off here.
	DisableCascadeAttn bool `json:"disable_cascade_attn" yaml:"disable_cascade_attn" toml:"disable_cascade_attn"`
}

// CacheConfig describes the KV-cache layout and budget.
type CacheConfig struct {
	// Tokens per cache block. 0 means unset; the resolver picks a default.
	BlockSize           int    `json:"block_size" yaml:"block_size" toml:"block_size"`
	CacheDtype          string `json:"cache_dtype" yaml:"cache_dtype" toml:"cache_dtype"`
	EnablePrefixCaching bool   `json:"enable_prefix_caching" yaml:"enable_prefix_caching" toml:"enable_prefix_caching"`
	// Derived by the resolver; not read from config files.
	KVCacheBytes int64 `json:"kv_cache_bytes,omitempty" yaml:"-" toml:"-"`
}

// SchedulerConfig carries the scheduling knobs the platform constrains.
type SchedulerConfig struct {
	EnableChunkedPrefill bool `json:"enable_chunked_prefill" yaml:"enable_chunked_prefill" toml:"enable_chunked_prefill"`
	MaxNumBatchedTokens  int  `json:"max_num_batched_tokens" yaml:"max_num_batched_tokens" toml:"max_num_batched_tokens"`
	MaxModelLen          int  `json:"max_model_len" yaml:"max_model_len" toml:"max_model_len"`
}

// ParallelConfig describes the distributed execution layout.
type ParallelConfig struct {
	WorldSize          int `json:"world_size" yaml:"world_size" toml:"world_size"`
	TensorParallelSize int `json:"tensor_parallel_size" yaml:"tensor_parallel_size" toml:"tensor_parallel_size"`
	// Executor backend name; only "mp" runs on this platform.
	DistributedExecutorBackend string `json:"distributed_executor_backend" yaml:"distributed_executor_backend" toml:"distributed_executor_backend"`
	// Worker implementation identifier; "auto" lets the platform bind it.
	WorkerCls string `json:"worker_cls" yaml:"worker_cls" toml:"worker_cls"`
}

// InductorOptions are the optimizer toggles handed to the inductor-style
// compiler backend.
type InductorOptions struct {
	DCE            bool `json:"dce" yaml:"dce" toml:"dce"`
	SizeAsserts    bool `json:"size_asserts" yaml:"size_asserts" toml:"size_asserts"`
	NaNAsserts     bool `json:"nan_asserts" yaml:"nan_asserts" toml:"nan_asserts"`
	EpilogueFusion bool `json:"epilogue_fusion" yaml:"epilogue_fusion" toml:"epilogue_fusion"`
}

// CompilationConfig controls the model compilation pipeline.
type CompilationConfig struct {
	Level     int      `json:"level" yaml:"level" toml:"level"`
	Backend   string   `json:"backend" yaml:"backend" toml:"backend"`
	CustomOps []string `json:"custom_ops,omitempty" yaml:"custom_ops" toml:"custom_ops"`
	// Graph capture is a GPU-only optimization; emptied by the resolver.
	GraphCaptureSizes []int           `json:"graph_capture_sizes,omitempty" yaml:"graph_capture_sizes" toml:"graph_capture_sizes"`
	Inductor          InductorOptions `json:"inductor" yaml:"inductor" toml:"inductor"`
}

// LoRAConfig is present only when LoRA adapters are configured.
type LoRAConfig struct {
	MaxLoRAs    int `json:"max_loras" yaml:"max_loras" toml:"max_loras"`
	MaxLoRARank int `json:"max_lora_rank" yaml:"max_lora_rank" toml:"max_lora_rank"`
}

// DeviceConfig names the device type this configuration targets.
type DeviceConfig struct {
	DeviceType string `json:"device_type" yaml:"device_type" toml:"device_type"`
}

// RuntimeConfig is the full configuration aggregate. The platform layer
// mutates it in place during resolution; it is not internally synchronized
// and must be resolved before being handed to execution components.
type RuntimeConfig struct {
	Model       ModelConfig       `json:"model" yaml:"model" toml:"model"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" toml:"cache"`
	Scheduler   SchedulerConfig   `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Parallel    ParallelConfig    `json:"parallel" yaml:"parallel" toml:"parallel"`
	Compilation CompilationConfig `json:"compilation" yaml:"compilation" toml:"compilation"`
	LoRA        *LoRAConfig       `json:"lora,omitempty" yaml:"lora" toml:"lora"`
	Device      DeviceConfig      `json:"device" yaml:"device" toml:"device"`
}

// Default returns a RuntimeConfig with the unresolved defaults a caller
// would get without any overrides.
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		Model: ModelConfig{Dtype: DtypeAuto},
		Cache: CacheConfig{CacheDtype: CacheDtypeAuto},
		Parallel: ParallelConfig{
			WorldSize:          1,
			TensorParallelSize: 1,
			WorkerCls:          "auto",
		},
		Compilation: CompilationConfig{Level: CompilePiecewise},
		Device:      DeviceConfig{DeviceType: "cpu"},
	}
}

// Clone returns a deep copy, so callers can dry-run resolution without
// touching the original.
func (c *RuntimeConfig) Clone() *RuntimeConfig {
	out := *c
	if c.LoRA != nil {
		lora := *c.LoRA
		out.LoRA = &lora
	}
	if c.Compilation.CustomOps != nil {
		out.Compilation.CustomOps = append([]string(nil), c.Compilation.CustomOps...)
	}
	if c.Compilation.GraphCaptureSizes != nil {
		out.Compilation.GraphCaptureSizes = append([]int(nil), c.Compilation.GraphCaptureSizes...)
	}
	return &out
}
