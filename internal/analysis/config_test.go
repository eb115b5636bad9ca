package analysis

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestDefaultSnapshot_Values(t *testing.T) {
	snapshot := DefaultSnapshot()

	volume := snapshot[MetricVolume]
	if volume.Weight != 40 || volume.Min != -35 || volume.Ideal != -15 || volume.Max != 0 {
		t.Errorf("Expected volume defaults 40/-35/-15/0, got %+v", volume)
	}

	rate := snapshot[MetricSpeechRate]
	if rate.Weight != 40 || rate.Min != 90 || rate.Ideal != 150 || rate.Max != 220 {
		t.Errorf("Expected speechRate defaults 40/90/150/220, got %+v", rate)
	}

	accel := snapshot[MetricAcceleration]
	if accel.Weight != 5 || accel.Min != 0 || accel.Ideal != 50 || accel.Max != 100 {
		t.Errorf("Expected acceleration defaults 5/0/50/100, got %+v", accel)
	}

	// Response time stores its ceiling in Min and its target in Ideal
	response := snapshot[MetricResponseTime]
	if response.Weight != 5 || response.Min != 2000 || response.Ideal != 200 || response.Max != 0 {
		t.Errorf("Expected responseTime defaults 5/2000/200/0, got %+v", response)
	}

	pause := snapshot[MetricPauseManagement]
	if pause.Weight != 10 || pause.Min != 0 || pause.Ideal != 0 || pause.Max != 2.71 {
		t.Errorf("Expected pauseManagement defaults 10/0/0/2.71, got %+v", pause)
	}

	for _, id := range MetricIDs {
		if !snapshot[id].Enabled {
			t.Errorf("Expected %s to be enabled by default", id)
		}
	}
}

func TestSnapshot_Apply_MergesFields(t *testing.T) {
	base := DefaultSnapshot()
	merged := base.Apply(Patch{
		MetricSpeechRate: {Ideal: floatPtr(160)},
	})

	cfg := merged[MetricSpeechRate]
	if cfg.Ideal != 160 {
		t.Errorf("Expected patched ideal 160, got %f", cfg.Ideal)
	}
	if cfg.Min != 90 || cfg.Max != 220 || cfg.Weight != 40 {
		t.Errorf("Expected unpatched fields to keep defaults, got %+v", cfg)
	}
}

func TestSnapshot_Apply_DoesNotModifyReceiver(t *testing.T) {
	base := DefaultSnapshot()
	base.Apply(Patch{
		MetricVolume: {Weight: floatPtr(99), Enabled: boolPtr(false)},
	})

	cfg := base[MetricVolume]
	if cfg.Weight != 40 || !cfg.Enabled {
		t.Errorf("Expected receiver to keep defaults after Apply, got %+v", cfg)
	}
}

func TestSnapshot_Apply_IgnoresUnknownMetric(t *testing.T) {
	merged := DefaultSnapshot().Apply(Patch{
		MetricID("sparkle"): {Weight: floatPtr(100)},
	})

	if len(merged) != len(MetricIDs) {
		t.Errorf("Expected %d metrics after applying unknown ID, got %d", len(MetricIDs), len(merged))
	}
	if _, ok := merged[MetricID("sparkle")]; ok {
		t.Error("Expected unknown metric to be ignored, but it was added")
	}
}

func TestSnapshot_Apply_DisablesMetric(t *testing.T) {
	merged := DefaultSnapshot().Apply(Patch{
		MetricAcceleration: {Enabled: boolPtr(false)},
	})

	if merged[MetricAcceleration].Enabled {
		t.Error("Expected acceleration to be disabled after patch")
	}
}

func TestMetricConfig_BandsDegenerate(t *testing.T) {
	if DefaultSnapshot()[MetricVolume].bandsDegenerate() {
		t.Error("Expected built-in volume bands to be usable")
	}
	collapsed := MetricConfig{Min: -20, Ideal: -20, Max: 0}
	if !collapsed.bandsDegenerate() {
		t.Error("Expected Ideal==Min to be degenerate")
	}
	collapsed = MetricConfig{Min: 90, Ideal: 150, Max: 150}
	if !collapsed.bandsDegenerate() {
		t.Error("Expected Max==Ideal to be degenerate")
	}
	poisoned := MetricConfig{Min: math.NaN(), Ideal: -15, Max: 0}
	if !poisoned.bandsDegenerate() {
		t.Error("Expected NaN threshold to be degenerate")
	}
	poisoned = MetricConfig{Min: -35, Ideal: math.Inf(1), Max: 0}
	if !poisoned.bandsDegenerate() {
		t.Error("Expected infinite threshold to be degenerate")
	}
}

func TestResolveBands_FallsBackToBuiltins(t *testing.T) {
	cfg := MetricConfig{Weight: 12, Min: -20, Ideal: -20, Max: 0, Method: "custom", Enabled: false}
	resolved := resolveBands(MetricVolume, cfg)

	if resolved.Min != -35 || resolved.Ideal != -15 || resolved.Max != 0 {
		t.Errorf("Expected built-in volume thresholds, got %+v", resolved)
	}
	// Only the thresholds fall back
	if resolved.Weight != 12 || resolved.Method != "custom" || resolved.Enabled {
		t.Errorf("Expected weight/method/enabled to survive fallback, got %+v", resolved)
	}
}

func TestResolveBands_KeepsUsableConfig(t *testing.T) {
	cfg := MetricConfig{Weight: 40, Min: -40, Ideal: -20, Max: -5, Enabled: true}
	resolved := resolveBands(MetricVolume, cfg)

	if resolved != cfg {
		t.Errorf("Expected usable config to pass through unchanged, got %+v", resolved)
	}
}
