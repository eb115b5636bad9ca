package settings

import (
	"reflect"
	"testing"

	"github.com/orato-ai/speech-scorer/internal/analysis"
)

func floatPtr(v float64) *float64 { return &v }

func TestResolver_EmptyResolvesToBuiltins(t *testing.T) {
	resolver := NewResolver()

	if !reflect.DeepEqual(resolver.Snapshot(), analysis.DefaultSnapshot()) {
		t.Error("Expected empty resolver to resolve to built-in defaults")
	}
}

func TestResolver_GlobalLayerApplies(t *testing.T) {
	resolver := NewResolver()
	resolver.SetLayer(LayerGlobal, analysis.Patch{
		analysis.MetricVolume: {Ideal: floatPtr(-18)},
	})

	snapshot := resolver.Snapshot()
	if snapshot[analysis.MetricVolume].Ideal != -18 {
		t.Errorf("Expected global ideal -18, got %f", snapshot[analysis.MetricVolume].Ideal)
	}
	if snapshot[analysis.MetricVolume].Min != -35 {
		t.Errorf("Expected unpatched min -35, got %f", snapshot[analysis.MetricVolume].Min)
	}
}

func TestResolver_UserLayerWinsOverGlobal(t *testing.T) {
	resolver := NewResolver()
	resolver.SetLayer(LayerGlobal, analysis.Patch{
		analysis.MetricSpeechRate: {Ideal: floatPtr(140), Max: floatPtr(210)},
	})
	resolver.SetLayer(LayerUser, analysis.Patch{
		analysis.MetricSpeechRate: {Ideal: floatPtr(165)},
	})

	snapshot := resolver.Snapshot()
	cfg := snapshot[analysis.MetricSpeechRate]
	if cfg.Ideal != 165 {
		t.Errorf("Expected user ideal 165 to win, got %f", cfg.Ideal)
	}
	// Fields the user layer leaves alone inherit from the global layer
	if cfg.Max != 210 {
		t.Errorf("Expected global max 210 to survive, got %f", cfg.Max)
	}
	if cfg.Min != 90 {
		t.Errorf("Expected built-in min 90, got %f", cfg.Min)
	}
}

func TestResolver_ClearLayer(t *testing.T) {
	resolver := NewResolver()
	resolver.SetLayer(LayerUser, analysis.Patch{
		analysis.MetricVolume: {Weight: floatPtr(99)},
	})
	resolver.ClearLayer(LayerUser)

	if resolver.Snapshot()[analysis.MetricVolume].Weight != 40 {
		t.Error("Expected cleared layer to drop its influence")
	}
}

func TestResolver_SnapshotIsDetached(t *testing.T) {
	resolver := NewResolver()

	snapshot := resolver.Snapshot()
	cfg := snapshot[analysis.MetricVolume]
	cfg.Weight = 1
	snapshot[analysis.MetricVolume] = cfg

	if resolver.Snapshot()[analysis.MetricVolume].Weight != 40 {
		t.Error("Expected mutating a snapshot to not affect the resolver")
	}
}
