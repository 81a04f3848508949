package platform

import (
	"testing"

	"cpuplatd/internal/registry"
)

func TestSelectAttentionBackendDefault(t *testing.T) {
	id, err := SelectAttentionBackend("", false, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := registry.MustLookup(registry.KindAttention, registry.BackendSDPA)
	if id != want {
		t.Fatalf("expected %q, got %q", want, id)
	}
}

func TestSelectAttentionBackendDowngradesRequest(t *testing.T) {
	// A non-default request is ignored with a notice, not an error.
	id, err := SelectAttentionBackend("flash", false, true)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := registry.MustLookup(registry.KindAttention, registry.BackendSDPA)
	if id != want {
		t.Fatalf("expected downgrade to %q, got %q", want, id)
	}
}

func TestSelectAttentionBackendRejectsMLA(t *testing.T) {
	for _, requested := range []string{"", registry.BackendSDPA, "flash"} {
		if _, err := SelectAttentionBackend(requested, true, true); !IsUnsupportedFeature(err) {
			t.Fatalf("requested=%q: expected unsupported feature, got %v", requested, err)
		}
	}
}

func TestSelectAttentionBackendRequiresV1(t *testing.T) {
	if _, err := SelectAttentionBackend("", false, false); !IsUnsupportedFeature(err) {
		t.Fatalf("expected unsupported feature, got %v", err)
	}
}
