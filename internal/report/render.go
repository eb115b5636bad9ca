package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/orato-ai/speech-scorer/internal/analysis"
)

// Color palette
var (
	goodColor  = lipgloss.Color("#2E7D32") // Green
	midColor   = lipgloss.Color("#F9A825") // Amber
	poorColor  = lipgloss.Color("#C62828") // Red
	mutedColor = lipgloss.Color("#888888") // Gray
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	noteStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// scoreStyle colors a score by the same thresholds as the feedback
// buckets.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return lipgloss.NewStyle().Bold(true).Foreground(goodColor)
	case score >= 40:
		return lipgloss.NewStyle().Bold(true).Foreground(midColor)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(poorColor)
}

// metricRow is one line of the rendered score table.
type metricRow struct {
	label  string
	score  int
	detail string
}

// Render formats a scoring result and its tips as a terminal report.
// With plain set, no styling is applied, for non-TTY output.
func Render(r *analysis.Result, tips []Tip, plain bool) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder

	title := "Speaking Energy Report"
	if !plain {
		title = titleStyle.Render(title)
	}
	sb.WriteString(title)
	sb.WriteString("\n")

	overall := fmt.Sprintf("%d (%s)", r.OverallScore, r.FeedbackBucket)
	if !plain {
		overall = scoreStyle(r.OverallScore).Render(overall)
	}
	sb.WriteString(fmt.Sprintf("Overall: %s\n\n", overall))

	rows := []metricRow{
		{"Volume", r.Volume.Score, fmt.Sprintf("%.1f dBFS", r.Volume.AverageDb)},
		{"Pace", r.SpeechRate.Score, paceDetail(r.SpeechRate)},
		{"Momentum", r.Acceleration.Score, momentumDetail(r.Acceleration)},
		{"Response", r.ResponseTime.Score, fmt.Sprintf("%d ms to first speech", r.ResponseTime.ResponseTimeMs)},
		{"Pauses", r.Pauses.Score, fmt.Sprintf("%.0f%% silence", r.Pauses.PauseRatio*100)},
	}

	header := fmt.Sprintf("%-10s %5s  %s", "Metric", "Score", "Detail")
	if !plain {
		header = headerStyle.Render(header)
	}
	sb.WriteString(header)
	sb.WriteString("\n")

	for _, row := range rows {
		// Pad the score before styling so the ANSI codes do not
		// break the column alignment.
		score := fmt.Sprintf("%5d", row.score)
		if !plain {
			score = scoreStyle(row.score).Render(score)
		}
		sb.WriteString(fmt.Sprintf("%-10s %s  %s\n", row.label, score, row.detail))
	}

	if r.Normalization != nil {
		totalGain := r.Normalization.DeviceGain + r.Normalization.NormalizationGain
		note := fmt.Sprintf("Input normalized %+.1f dB (%.1f to %.1f LUFS)",
			totalGain, r.Normalization.OriginalLUFS, r.Normalization.FinalLUFS)
		if !plain {
			note = noteStyle.Render(note)
		}
		sb.WriteString("\n")
		sb.WriteString(note)
		sb.WriteString("\n")
	}

	if len(tips) > 0 {
		heading := "Tips"
		if !plain {
			heading = headerStyle.Render(heading)
		}
		sb.WriteString("\n")
		sb.WriteString(heading)
		sb.WriteString("\n")
		for i, tip := range tips {
			sb.WriteString(fmt.Sprintf("%2d. %s\n", i+1, tip.Message))
		}
	}

	return sb.String()
}

func paceDetail(rate analysis.RateResult) string {
	detail := fmt.Sprintf("%d wpm (%s)", rate.WordsPerMinute, rate.Method)
	if rate.ObservedWords > 0 {
		detail += fmt.Sprintf(", %d words heard", rate.ObservedWords)
	}
	return detail
}

func momentumDetail(dyn analysis.DynamicsResult) string {
	if dyn.IsAccelerating {
		return fmt.Sprintf("building (%+.1f dB)", dyn.VolumeIncrease)
	}
	return fmt.Sprintf("steady (%+.1f dB)", dyn.VolumeIncrease)
}
