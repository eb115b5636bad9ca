// Package report turns a scoring result into coaching advice and a
// rendered summary for CLI and session consumers.
package report

import (
	"fmt"
	"sort"

	"github.com/orato-ai/speech-scorer/internal/analysis"
)

// Tip is a single piece of actionable delivery advice derived from a
// scoring result.
type Tip struct {
	Priority int    `json:"-"`       // Higher = more important (1-10)
	Message  string `json:"message"` // Human-readable advice (1-2 sentences)
	RuleID   string `json:"ruleId"`  // Identifier for testing/logging (e.g., "volume_too_quiet")
}

// MaxTips is the maximum number of tips to return.
const MaxTips = 3

// Tips analyses one scoring result and returns prioritised delivery
// improvement suggestions.
func Tips(r *analysis.Result) []Tip {
	if r == nil {
		return nil
	}

	var tips []Tip
	firedRules := make(map[string]bool)

	rules := []func(*analysis.Result) *Tip{
		tipVolumeTooQuiet,
		tipVolumeQuiet,
		tipVolumeHot,
		tipPaceFast,
		tipPaceSlow,
		tipFadingEnergy,
		tipSlowStart,
		tipManyPauses,
		tipNoPauses,
	}

	for _, rule := range rules {
		if tip := rule(r); tip != nil {
			tips = append(tips, *tip)
			firedRules[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, firedRules)

	// Sort by priority (descending)
	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxTips {
		tips = tips[:MaxTips]
	}

	return tips
}

// applyExclusions removes tips that are symptoms of another tip that
// already fired. A heavy pause ratio drags the measured pace down, so
// "pace_slow" is noise once "many_pauses" has fired; rushing compresses
// the gaps, so "no_pauses" is noise once "pace_fast" has fired.
func applyExclusions(tips []Tip, fired map[string]bool) []Tip {
	var result []Tip
	for _, tip := range tips {
		switch tip.RuleID {
		case "pace_slow":
			if fired["many_pauses"] {
				continue
			}
		case "no_pauses":
			if fired["pace_fast"] {
				continue
			}
		}
		result = append(result, tip)
	}
	return result
}

// tipVolumeTooQuiet fires when the average level is far below the
// usable band (< -35 dBFS).
func tipVolumeTooQuiet(r *analysis.Result) *Tip {
	if r.Volume.AverageDb >= -35.0 {
		return nil
	}
	return &Tip{
		Priority: 10,
		RuleID:   "volume_too_quiet",
		Message:  "Your voice is barely registering. Move closer to the microphone or raise its gain before the next take.",
	}
}

// tipVolumeQuiet fires when the average level is inside the band but
// well short of the ideal (-35 to -25 dBFS).
func tipVolumeQuiet(r *analysis.Result) *Tip {
	if r.Volume.AverageDb < -35.0 || r.Volume.AverageDb >= -25.0 {
		return nil
	}
	return &Tip{
		Priority: 7,
		RuleID:   "volume_quiet",
		Message:  "You are coming through a bit quiet. Project a little more, or sit closer to the microphone.",
	}
}

// tipVolumeHot fires when the average level leaves no headroom
// (> -8 dBFS).
func tipVolumeHot(r *analysis.Result) *Tip {
	if r.Volume.AverageDb <= -8.0 {
		return nil
	}
	return &Tip{
		Priority: 8,
		RuleID:   "volume_hot",
		Message:  "Your level is close to clipping. Back off the microphone or lower its gain to avoid distortion.",
	}
}

// tipPaceFast fires when the estimated pace is well above a
// comfortable listening rate.
func tipPaceFast(r *analysis.Result) *Tip {
	if r.SpeechRate.WordsPerMinute <= 190 {
		return nil
	}
	return &Tip{
		Priority: 8,
		RuleID:   "pace_fast",
		Message:  fmt.Sprintf("You are speaking at roughly %d words per minute, which is hard to follow. Slow down and let key points land.", r.SpeechRate.WordsPerMinute),
	}
}

// tipPaceSlow fires when the estimated pace drags. A zero estimate
// means no speech was found, which is not a pacing problem.
func tipPaceSlow(r *analysis.Result) *Tip {
	wpm := r.SpeechRate.WordsPerMinute
	if wpm == 0 || wpm >= 100 {
		return nil
	}
	return &Tip{
		Priority: 6,
		RuleID:   "pace_slow",
		Message:  fmt.Sprintf("You are speaking at roughly %d words per minute. Pick up the pace a little to keep listeners engaged.", wpm),
	}
}

// tipFadingEnergy fires when the second half of the delivery is
// quieter than the first.
func tipFadingEnergy(r *analysis.Result) *Tip {
	if r.Acceleration.IsAccelerating || r.Acceleration.VolumeIncrease >= 0 {
		return nil
	}
	return &Tip{
		Priority: 5,
		RuleID:   "fading_energy",
		Message:  "Your energy fades toward the end. Try building intensity so you finish stronger than you start.",
	}
}

// tipSlowStart fires when speech takes more than a second to begin.
func tipSlowStart(r *analysis.Result) *Tip {
	if r.ResponseTime.ResponseTimeMs <= 1000 {
		return nil
	}
	return &Tip{
		Priority: 7,
		RuleID:   "slow_start",
		Message:  fmt.Sprintf("It took about %.1f seconds before you started speaking. Begin with your first word ready.", float64(r.ResponseTime.ResponseTimeMs)/1000.0),
	}
}

// tipManyPauses fires when a large share of the recording is silence.
func tipManyPauses(r *analysis.Result) *Tip {
	if r.Pauses.PauseRatio <= 0.4 {
		return nil
	}
	return &Tip{
		Priority: 6,
		RuleID:   "many_pauses",
		Message:  fmt.Sprintf("About %.0f%% of your recording is silence. Tighten the gaps between thoughts to hold attention.", r.Pauses.PauseRatio*100),
	}
}

// tipNoPauses fires when fast speech leaves almost no silence at all.
func tipNoPauses(r *analysis.Result) *Tip {
	if r.Pauses.PauseRatio >= 0.05 || r.SpeechRate.WordsPerMinute <= 170 {
		return nil
	}
	return &Tip{
		Priority: 4,
		RuleID:   "no_pauses",
		Message:  "You rarely pause. A short breath after each point gives listeners time to absorb it.",
	}
}
