package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/orato-ai/speech-scorer/internal/analysis"
	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/config"
	"github.com/orato-ai/speech-scorer/internal/observability"
	"github.com/orato-ai/speech-scorer/internal/report"
	"github.com/orato-ai/speech-scorer/internal/stt"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

// AnalyzeRequest is the one-shot scoring request body.
type AnalyzeRequest struct {
	Audio      string       `json:"audio"` // Base64 encoded s16le PCM
	SampleRate int          `json:"sampleRate"`
	DeviceID   string       `json:"deviceId,omitempty"`
	VAD        *vad.Metrics `json:"vad,omitempty"`
}

// AnalyzeResponse carries the scoring result and coaching tips.
type AnalyzeResponse struct {
	Result *analysis.Result `json:"result"`
	Tips   []report.Tip     `json:"tips,omitempty"`
}

// AnalyzeHandler scores a complete recording in one POST request, for
// callers that do not stream.
func AnalyzeHandler(cfg *config.Config, engine *analysis.Engine, transcriber stt.Transcriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.SampleRate <= 0 {
			http.Error(w, "sample rate must be positive", http.StatusBadRequest)
			return
		}

		data, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			http.Error(w, "audio is not valid base64", http.StatusBadRequest)
			return
		}
		samples, err := audio.DecodeLinear16(data)
		if err != nil {
			http.Error(w, "audio is not valid 16-bit PCM", http.StatusBadRequest)
			return
		}

		requestID := "req-" + uuid.New().String()
		logger := observability.WithCorrelationID(observability.NewCorrelationID()).
			With().
			Str("request_id", requestID).
			Logger()

		metrics := observability.NewSessionMetrics(requestID)
		metrics.RecordSessionStart()
		defer metrics.RecordSessionEnd()
		metrics.RecordAudioBytes(int64(len(data)))

		// The streaming cap applies here too
		limit := cfg.MaxRecordingSeconds * req.SampleRate
		if limit > 0 && len(samples) > limit {
			logger.Warn().
				Int("dropped", len(samples)-limit).
				Msg("Recording cap reached, truncating request")
			samples = samples[:limit]
		}

		words := observedWords(r.Context(), transcriber, metrics, logger,
			samples, req.SampleRate, cfg.DeepgramTimeout)

		result, err := engine.Analyze(r.Context(), analysis.Request{
			Samples:    audio.ToFloat64(samples),
			SampleRate: req.SampleRate,
			DeviceID:   req.DeviceID,
			VAD:        req.VAD,
			WordCount:  words,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Analysis failed")
			metrics.RecordError("analysis", "session")
			http.Error(w, "analysis failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AnalyzeResponse{
			Result: result,
			Tips:   report.Tips(result),
		})
	}
}
