package platform

import (
	"reflect"
	"strings"
	"testing"

	"cpuplatd/internal/config"
	"cpuplatd/internal/registry"
	"cpuplatd/pkg/types"
)

// withExtension pins the accelerated-extension probe for one test.
func withExtension(t *testing.T, present bool) {
	t.Helper()
	prev := ExtensionAvailable
	t.Cleanup(func() { ExtensionAvailable = prev })
	ExtensionAvailable = func() bool { return present }
}

// baseConfig returns a config with a neutral environment: no extension,
// no KV budget override, no CI flag.
func baseConfig(t *testing.T) *config.RuntimeConfig {
	t.Helper()
	withExtension(t, false)
	t.Setenv(KVCacheSpaceEnv, "")
	t.Setenv(CIEnv, "")
	return config.Default()
}

func corrected(rep *types.ResolveReport, rule string) bool {
	for _, c := range rep.Corrections {
		if c.Rule == rule {
			return true
		}
	}
	return false
}

func TestResolveDefaults(t *testing.T) {
	cfg := baseConfig(t)
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !cfg.Model.DisableCascadeAttn {
		t.Fatalf("cascade attention must be disabled")
	}
	if cfg.Cache.BlockSize != 16 {
		t.Fatalf("expected default block size 16, got %d", cfg.Cache.BlockSize)
	}
	if cfg.Cache.KVCacheBytes != 4*gib {
		t.Fatalf("expected 4 GiB budget, got %d", cfg.Cache.KVCacheBytes)
	}
	if want := registry.MustLookup(registry.KindWorker, "cpu"); cfg.Parallel.WorkerCls != want {
		t.Fatalf("expected worker class %q, got %q", want, cfg.Parallel.WorkerCls)
	}
	if !corrected(rep, "worker-binding") {
		t.Fatalf("worker binding should be reported: %+v", rep.Corrections)
	}
}

func TestResolveBlockSizeWithExtension(t *testing.T) {
	withExtension(t, true)
	t.Setenv(KVCacheSpaceEnv, "")
	t.Setenv(CIEnv, "")
	cfg := config.Default()
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Cache.BlockSize != 128 {
		t.Fatalf("expected block size 128 with extension, got %d", cfg.Cache.BlockSize)
	}
}

func TestResolveRejectsBlockSizeWithoutExtension(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Cache.BlockSize = 32
	_, err := Resolve(cfg)
	if !IsUnsupportedConfig(err) {
		t.Fatalf("expected unsupported config, got %v", err)
	}
}

func TestResolveRejectsChunkedPrefillWithFP8(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Scheduler.EnableChunkedPrefill = true
	cfg.Cache.CacheDtype = config.CacheDtypeFP8E5M2
	if _, err := Resolve(cfg); !IsIncompatibleConfig(err) {
		t.Fatalf("expected incompatible config, got %v", err)
	}

	cfg = baseConfig(t)
	cfg.Cache.EnablePrefixCaching = true
	cfg.Cache.CacheDtype = config.CacheDtypeFP8E4M3
	if _, err := Resolve(cfg); !IsIncompatibleConfig(err) {
		t.Fatalf("prefix caching with fp8 should be rejected, got %v", err)
	}
}

func TestResolveRemapsFP8Variant(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Cache.CacheDtype = config.CacheDtypeFP8E4M3
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Cache.CacheDtype != config.CacheDtypeFP8E5M2 {
		t.Fatalf("expected fp8_e5m2, got %q", cfg.Cache.CacheDtype)
	}
	if !corrected(rep, "fp8-variant-remap") {
		t.Fatalf("remap should be reported: %+v", rep.Corrections)
	}
}

func TestResolveUpgradesFloat16WithFP8Cache(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Model.Dtype = config.DtypeFloat16
	cfg.Cache.CacheDtype = config.CacheDtypeFP8E5M2
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Model.Dtype != config.DtypeBFloat16 {
		t.Fatalf("expected bfloat16 upgrade, got %q", cfg.Model.Dtype)
	}

	// Without an fp8 cache the model dtype is untouched.
	cfg = baseConfig(t)
	cfg.Model.Dtype = config.DtypeFloat16
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Model.Dtype != config.DtypeFloat16 {
		t.Fatalf("float16 should survive with auto cache, got %q", cfg.Model.Dtype)
	}
}

func TestResolveBudgetFromEnv(t *testing.T) {
	cfg := baseConfig(t)
	t.Setenv(KVCacheSpaceEnv, "8")
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Cache.KVCacheBytes != 8*gib {
		t.Fatalf("expected 8 GiB budget, got %d", cfg.Cache.KVCacheBytes)
	}
}

func TestResolveForcesMultiprocExecutor(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Parallel.WorldSize = 2
	cfg.Parallel.DistributedExecutorBackend = "ray"
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Parallel.DistributedExecutorBackend != "mp" {
		t.Fatalf("expected mp executor, got %q", cfg.Parallel.DistributedExecutorBackend)
	}
	if !corrected(rep, "executor-backend") {
		t.Fatalf("override should be reported: %+v", rep.Corrections)
	}

	// A single-process world keeps whatever was requested.
	cfg = baseConfig(t)
	cfg.Parallel.DistributedExecutorBackend = "ray"
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Parallel.DistributedExecutorBackend != "ray" {
		t.Fatalf("executor should be untouched for world size 1")
	}
}

func TestResolveClearsGraphCapture(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Compilation.GraphCaptureSizes = []int{1, 2, 4}
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(cfg.Compilation.GraphCaptureSizes) != 0 {
		t.Fatalf("capture sizes should be cleared, got %v", cfg.Compilation.GraphCaptureSizes)
	}
}

func TestResolveDowngradesPiecewiseCompilation(t *testing.T) {
	cfg := baseConfig(t)
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cc := cfg.Compilation
	if cc.Level != config.CompileDynamoOnce {
		t.Fatalf("expected dynamo-once, got %d", cc.Level)
	}
	if cc.Backend != config.CompileBackendInductor {
		t.Fatalf("expected inductor backend, got %q", cc.Backend)
	}
	want := config.InductorOptions{DCE: true, EpilogueFusion: true}
	if cc.Inductor != want {
		t.Fatalf("unexpected inductor options: %+v", cc.Inductor)
	}
	if len(cc.CustomOps) != 1 || cc.CustomOps[0] != "none" {
		t.Fatalf("inductor must disable custom ops, got %v", cc.CustomOps)
	}
}

func TestResolveUsesEagerBackendInCI(t *testing.T) {
	cfg := baseConfig(t)
	t.Setenv(CIEnv, "1")
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Compilation.Backend != config.CompileBackendEager {
		t.Fatalf("expected eager backend in CI, got %q", cfg.Compilation.Backend)
	}
	if len(cfg.Compilation.CustomOps) != 0 {
		t.Fatalf("eager backend should not restrict custom ops, got %v", cfg.Compilation.CustomOps)
	}
}

func TestResolveLoRADisablesCompilation(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LoRA = &config.LoRAConfig{MaxLoRAs: 1}
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Compilation.Level != config.CompileNone {
		t.Fatalf("expected no compilation with lora, got %d", cfg.Compilation.Level)
	}
	if !corrected(rep, "lora-compilation") {
		t.Fatalf("lora downgrade should be reported: %+v", rep.Corrections)
	}
}

func TestResolveDeviceInvariant(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Device.DeviceType = "cuda"
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on foreign device type")
		}
		if !strings.Contains(r.(string), "cuda") {
			t.Fatalf("panic should name the device: %v", r)
		}
	}()
	_, _ = Resolve(cfg)
}

func TestResolveMLAScheduling(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Model.UseMLA = true
	cfg.Scheduler.EnableChunkedPrefill = true
	cfg.Scheduler.MaxModelLen = 8192
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Scheduler.EnableChunkedPrefill || cfg.Cache.EnablePrefixCaching {
		t.Fatalf("MLA must disable chunked prefill and prefix caching")
	}
	if cfg.Scheduler.MaxNumBatchedTokens != 8192 {
		t.Fatalf("expected batched tokens raised to model len, got %d", cfg.Scheduler.MaxNumBatchedTokens)
	}
	if !corrected(rep, "mla-scheduling") {
		t.Fatalf("mla adjustment should be reported: %+v", rep.Corrections)
	}

	// Short models fall back to the platform floor.
	cfg = baseConfig(t)
	cfg.Model.UseMLA = true
	cfg.Scheduler.MaxModelLen = 512
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Scheduler.MaxNumBatchedTokens != DefaultMaxNumBatchedTokens {
		t.Fatalf("expected floor %d, got %d", DefaultMaxNumBatchedTokens, cfg.Scheduler.MaxNumBatchedTokens)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Model.UseMLA = true
	cfg.Cache.CacheDtype = config.CacheDtypeFP8E4M3
	cfg.Model.Dtype = config.DtypeFloat16
	cfg.Parallel.WorldSize = 2
	cfg.Parallel.DistributedExecutorBackend = "ray"
	if _, err := Resolve(cfg); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	snapshot := cfg.Clone()
	rep, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if len(rep.Corrections) != 0 {
		t.Fatalf("second pass should change nothing, got %+v", rep.Corrections)
	}
	if !reflect.DeepEqual(cfg, snapshot) {
		t.Fatalf("config drifted on re-resolve:\nbefore %+v\nafter  %+v", snapshot, cfg)
	}
}
