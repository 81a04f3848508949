package platform

import (
	"fmt"
	"os"

	"cpuplatd/internal/config"
	"cpuplatd/internal/registry"
	"cpuplatd/pkg/types"
)

// CIEnv marks a CI environment where just-in-time kernel compilation is
// too slow; the resolver then selects the eager compiler backend.
const CIEnv = "VLLM_CPU_CI_ENV"

// A rule inspects one slice of the configuration and may rewrite it.
// Rules run in order; the first error halts resolution. Every rule is
// idempotent, so re-resolving a resolved configuration changes nothing.
type rule struct {
	name  string
	apply func(cfg *config.RuntimeConfig, rep *types.ResolveReport) error
}

var rules = []rule{
	{"disable-cascade-attention", ruleDisableCascade},
	{"cache-block-size", ruleBlockSize},
	{"kv-dtype-scheduling", ruleKVDtypeScheduling},
	{"fp8-variant-remap", ruleFP8Remap},
	{"model-dtype-upgrade", ruleModelDtypeUpgrade},
	{"kv-cache-budget", ruleKVCacheBudget},
	{"executor-backend", ruleExecutorBackend},
	{"worker-binding", ruleWorkerBinding},
	{"graph-capture", ruleGraphCapture},
	{"compilation-level", ruleCompilationLevel},
	{"lora-compilation", ruleLoRACompilation},
	{"device-invariant", ruleDeviceInvariant},
	{"mla-scheduling", ruleMLAScheduling},
}

// Resolve rewrites cfg into a state the CPU backend can execute, or
// reports why it cannot. On error the configuration may be partially
// rewritten and must not be used. The config is mutated in place and is
// not internally synchronized; callers must serialize access.
func Resolve(cfg *config.RuntimeConfig) (*types.ResolveReport, error) {
	rep := &types.ResolveReport{}
	for _, r := range rules {
		if err := r.apply(cfg, rep); err != nil {
			resolveTotal.WithLabelValues("rejected").Inc()
			return rep, err
		}
	}
	resolveTotal.WithLabelValues("ok").Inc()
	return rep, nil
}

// note records a compatibility rewrite: reported to the caller, counted,
// and logged, but never an error.
func note(rep *types.ResolveReport, ruleName, msg string) {
	rep.Corrections = append(rep.Corrections, types.Correction{Rule: ruleName, Message: msg})
	correctionsTotal.WithLabelValues(ruleName).Inc()
	logWarn(msg)
}

func ruleDisableCascade(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if !cfg.Model.DisableCascadeAttn {
		cfg.Model.DisableCascadeAttn = true
		note(rep, "disable-cascade-attention", "cascade attention is not supported on cpu, disabled")
	}
	return nil
}

func ruleBlockSize(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	ext := ExtensionAvailable()
	if cfg.Cache.BlockSize == 0 {
		if ext {
			cfg.Cache.BlockSize = 128
		} else {
			cfg.Cache.BlockSize = 16
		}
		note(rep, "cache-block-size", fmt.Sprintf("cache block size unset, defaulting to %d", cfg.Cache.BlockSize))
	}
	if !ext && cfg.Cache.BlockSize != 16 {
		return unsupportedConfigError{msg: fmt.Sprintf("block size %d requires the accelerated cache extension", cfg.Cache.BlockSize)}
	}
	return nil
}

func ruleKVDtypeScheduling(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if (cfg.Scheduler.EnableChunkedPrefill || cfg.Cache.EnablePrefixCaching) &&
		cfg.Cache.CacheDtype != config.CacheDtypeAuto {
		return incompatibleConfigError{msg: "chunked prefill and prefix caching on the cpu backend are not compatible with an fp8 KV cache"}
	}
	return nil
}

func ruleFP8Remap(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if cfg.Cache.CacheDtype == config.CacheDtypeFP8E4M3 {
		cfg.Cache.CacheDtype = config.CacheDtypeFP8E5M2
		note(rep, "fp8-variant-remap", "cpu backend does not support the fp8_e4m3 KV cache type, cast to fp8_e5m2")
	}
	return nil
}

func ruleModelDtypeUpgrade(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if cfg.Cache.CacheDtype != config.CacheDtypeAuto && cfg.Model.Dtype == config.DtypeFloat16 {
		cfg.Model.Dtype = config.DtypeBFloat16
		note(rep, "model-dtype-upgrade", "fp8 KV cache on cpu does not support float16, cast model dtype to bfloat16")
	}
	return nil
}

func ruleKVCacheBudget(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	bytes, err := KVCacheBytes()
	if err != nil {
		return err
	}
	cfg.Cache.KVCacheBytes = bytes
	return nil
}

func ruleExecutorBackend(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	p := &cfg.Parallel
	if p.WorldSize > 1 && p.DistributedExecutorBackend != "" && p.DistributedExecutorBackend != "mp" {
		note(rep, "executor-backend", fmt.Sprintf("executor backend %q is not supported on cpu, falling back to mp", p.DistributedExecutorBackend))
		p.DistributedExecutorBackend = "mp"
	}
	return nil
}

func ruleWorkerBinding(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if cfg.Parallel.WorkerCls == registry.WorkerAuto {
		cfg.Parallel.WorkerCls = registry.MustLookup(registry.KindWorker, "cpu")
		note(rep, "worker-binding", "bound worker class to "+cfg.Parallel.WorkerCls)
	}
	return nil
}

func ruleGraphCapture(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if len(cfg.Compilation.GraphCaptureSizes) > 0 {
		cfg.Compilation.GraphCaptureSizes = nil
		note(rep, "graph-capture", "graph capture is a GPU-only optimization, capture size list cleared")
	}
	return nil
}

func ruleCompilationLevel(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	cc := &cfg.Compilation
	if cc.Level != config.CompilePiecewise {
		return nil
	}
	// Piecewise JIT compilation is too slow to be worthwhile here; compile
	// the whole graph once. CI environments skip the optimizing backend
	// entirely to keep test runs fast.
	backend := config.CompileBackendInductor
	if v := os.Getenv(CIEnv); v != "" && v != "0" {
		backend = config.CompileBackendEager
	}
	cc.Level = config.CompileDynamoOnce
	cc.Backend = backend
	cc.Inductor = config.InductorOptions{
		DCE:            true,
		SizeAsserts:    false,
		NaNAsserts:     false,
		EpilogueFusion: true,
	}
	if cc.Backend == config.CompileBackendInductor {
		// Custom-op fusion is known to miscompile under inductor on cpu.
		cc.CustomOps = []string{"none"}
	}
	note(rep, "compilation-level", "piecewise compilation downgraded to dynamo-once with backend "+backend)
	return nil
}

func ruleLoRACompilation(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if cfg.LoRA != nil && cfg.Compilation.Level != config.CompileNone {
		cfg.Compilation.Level = config.CompileNone
		note(rep, "lora-compilation", "LoRA adapters disable the compilation pipeline on cpu")
	}
	return nil
}

func ruleDeviceInvariant(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	// Reaching the cpu resolver with another device type is a caller bug,
	// not user input.
	if cfg.Device.DeviceType != DeviceType {
		panic(fmt.Sprintf("platform: resolving device type %q on the cpu backend", cfg.Device.DeviceType))
	}
	return nil
}

func ruleMLAScheduling(cfg *config.RuntimeConfig, rep *types.ResolveReport) error {
	if !cfg.Model.UseMLA {
		return nil
	}
	if cfg.Scheduler.EnableChunkedPrefill || cfg.Cache.EnablePrefixCaching {
		cfg.Scheduler.EnableChunkedPrefill = false
		cfg.Cache.EnablePrefixCaching = false
		note(rep, "mla-scheduling", "MLA requires whole sequences on cpu, disabled chunked prefill and prefix caching")
	}
	floor := cfg.Scheduler.MaxModelLen
	if floor < DefaultMaxNumBatchedTokens {
		floor = DefaultMaxNumBatchedTokens
	}
	if cfg.Scheduler.MaxNumBatchedTokens < floor {
		cfg.Scheduler.MaxNumBatchedTokens = floor
		note(rep, "mla-scheduling", fmt.Sprintf("raised max batched tokens to %d for MLA", floor))
	}
	return nil
}
