package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/orato-ai/speech-scorer/internal/analysis"
	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/observability"
	"github.com/orato-ai/speech-scorer/internal/report"
	"github.com/orato-ai/speech-scorer/internal/settings"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version information"`
	Verbose bool             `help:"Log analysis details"`

	Analyze AnalyzeCmd `cmd:"" help:"Score a raw PCM recording and print the report"`
	Gen     GenCmd     `cmd:"" help:"Write a synthetic recording for local experiments"`
}

// AnalyzeCmd scores a single capture file.
type AnalyzeCmd struct {
	File     string `arg:"" name:"file" help:"Raw signed 16-bit little-endian mono PCM file" type:"existingfile"`
	Rate     int    `help:"Sample rate of the recording in Hz" default:"48000"`
	Settings string `help:"Metric settings YAML applied over built-in defaults" type:"path"`
	Plain    bool   `help:"Disable styled output"`
	JSON     bool   `name:"json" help:"Print the raw result as JSON instead of the report"`
}

func (c *AnalyzeCmd) Run() error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	samples, err := audio.DecodeLinear16(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}

	var overrides analysis.Patch
	if c.Settings != "" {
		file, err := settings.Load(c.Settings)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		overrides = file.Patch()
	}

	engine := analysis.NewEngine(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := engine.Analyze(ctx, analysis.Request{
		Samples:    audio.ToFloat64(samples),
		SampleRate: c.Rate,
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Println(report.Render(result, report.Tips(result), c.Plain))
	return nil
}

// GenCmd writes a synthetic test signal.
type GenCmd struct {
	File    string  `arg:"" name:"file" help:"Output path for the raw PCM"`
	Rate    int     `help:"Sample rate in Hz" default:"48000"`
	Pattern string  `help:"Comma-separated kind:seconds segments (tone, silence, rise)" default:"tone:2,silence:0.5,rise:2"`
	Freq    float64 `help:"Tone frequency in Hz" default:"220"`
	Gain    float64 `help:"Tone peak level in dBFS" default:"-12"`
}

func (c *GenCmd) Run() error {
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	segments, err := audio.ParsePattern(c.Pattern)
	if err != nil {
		return err
	}

	samples := audio.Synthesize(segments, c.Rate, c.Freq, c.Gain)
	if err := os.WriteFile(c.File, audio.EncodeLinear16(samples), 0o644); err != nil {
		return err
	}

	seconds := float64(len(samples)) / float64(c.Rate)
	fmt.Printf("Wrote %s: %.1f s at %d Hz (%d samples)\n", c.File, seconds, c.Rate, len(samples))
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("speechscore"),
		kong.Description("Offline speaking energy scorer"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	// Logging shares the report's output stream, so stay quiet unless asked
	if cli.Verbose {
		observability.InitLogger("debug", true)
	} else {
		observability.InitLogger("error", true)
	}

	ctx.FatalIfErrorf(ctx.Run())
}
