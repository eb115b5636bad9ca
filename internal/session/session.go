// Package session runs the websocket ingest protocol. A client opens a
// session, streams one recording as base64 PCM chunks, and receives the
// scoring result when it stops.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orato-ai/speech-scorer/internal/analysis"
	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/config"
	"github.com/orato-ai/speech-scorer/internal/observability"
	"github.com/orato-ai/speech-scorer/internal/report"
	"github.com/orato-ai/speech-scorer/internal/stt"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients are same-origin through the app proxy;
		// native clients send no Origin header at all.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ClientMessage is one JSON event from the client.
type ClientMessage struct {
	Type  string       `json:"type"`
	Start *StartEvent  `json:"start,omitempty"`
	Audio *AudioEvent  `json:"audio,omitempty"`
	VAD   *vad.Metrics `json:"vad,omitempty"`
}

// StartEvent opens a recording.
type StartEvent struct {
	UserID     string `json:"userId"`
	DeviceID   string `json:"deviceId,omitempty"`
	SampleRate int    `json:"sampleRate"`
	Format     string `json:"format"`
}

// AudioEvent carries one chunk of the recording.
type AudioEvent struct {
	Payload string `json:"payload"` // Base64 encoded s16le PCM
}

// ServerMessage is one JSON event to the client.
type ServerMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
	Result    *analysis.Result `json:"result,omitempty"`
	Tips      []report.Tip     `json:"tips,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// RecordingSession holds the state of a single recording upload.
type RecordingSession struct {
	conn *websocket.Conn

	sessionID string

	// Recording parameters from the start event
	userID     string
	deviceID   string
	sampleRate int

	// State management
	mu       sync.RWMutex
	isActive bool
	started  bool

	// Capture and activity detection
	capture   *audio.Capture
	detector  *vad.Detector
	clientVAD *vad.Metrics

	// Collaborators
	engine      *analysis.Engine
	transcriber stt.Transcriber

	// Configuration
	config *config.Config

	// Observability
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewRecordingSession creates a session for one websocket connection.
// The transcriber may be nil; results then carry no observed word count.
func NewRecordingSession(conn *websocket.Conn, cfg *config.Config, engine *analysis.Engine, transcriber stt.Transcriber) *RecordingSession {
	sessionID := generateSessionID()

	logger := observability.WithCorrelationID(observability.NewCorrelationID()).
		With().
		Str("session_id", sessionID).
		Logger()

	metrics := observability.NewSessionMetrics(sessionID)
	metrics.RecordSessionStart()

	return &RecordingSession{
		conn:        conn,
		sessionID:   sessionID,
		engine:      engine,
		transcriber: transcriber,
		config:      cfg,
		metrics:     metrics,
		logger:      logger,
		isActive:    true,
	}
}

// Handler returns the websocket endpoint for recording sessions.
func Handler(cfg *config.Config, engine *analysis.Engine, transcriber stt.Transcriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}
		defer conn.Close()

		session := NewRecordingSession(conn, cfg, engine, transcriber)
		session.logger.Info().Msg("Recording session connected")
		session.Run()
	}
}

// Run reads client events until the recording stops or the connection
// drops. It blocks for the life of the session.
func (s *RecordingSession) Run() {
	defer func() {
		s.metrics.RecordSessionEnd()
		s.logger.Info().Msg("Recording session closed")
	}()

	for {
		s.mu.RLock()
		active := s.isActive
		s.mu.RUnlock()

		if !active {
			return
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
				s.metrics.RecordError("websocket_read", "session")
			}
			s.mu.Lock()
			s.isActive = false
			s.mu.Unlock()
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Error().Err(err).Msg("Failed to parse client message")
			s.sendError("malformed message")
			continue
		}

		switch msg.Type {
		case "start":
			s.handleStart(msg.Start)

		case "audio":
			s.handleAudio(msg.Audio)

		case "vad":
			s.handleVAD(msg.VAD)

		case "stop":
			s.handleStop()
			return

		default:
			s.logger.Warn().Str("type", msg.Type).Msg("Unknown client event")
			s.sendError(fmt.Sprintf("unknown event type %q", msg.Type))
		}
	}
}

func (s *RecordingSession) handleStart(start *StartEvent) {
	if start == nil {
		s.sendError("start event missing body")
		return
	}
	if start.SampleRate <= 0 {
		s.sendError("sample rate must be positive")
		return
	}
	if start.Format != "" && start.Format != "linear16" {
		s.sendError(fmt.Sprintf("unsupported format %q", start.Format))
		return
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.sendError("session already started")
		return
	}
	s.started = true
	s.userID = start.UserID
	s.deviceID = start.DeviceID
	s.sampleRate = start.SampleRate

	s.capture = audio.NewCapture(s.config.MaxRecordingSeconds * start.SampleRate)
	s.detector = vad.NewDetector(&vad.Config{
		SampleRate:      start.SampleRate,
		EnergyThreshold: s.config.VADEnergyThreshold,
		SpeechFrames:    s.config.VADSpeechFrames,
		SilenceFrames:   s.config.VADSilenceFrames,
		FrameSize:       start.SampleRate / 50,
	})
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", start.UserID).
		Str("device_id", start.DeviceID).
		Int("sample_rate", start.SampleRate).
		Msg("Recording started")

	s.send(&ServerMessage{Type: "ready", SessionID: s.sessionID})
}

func (s *RecordingSession) handleAudio(event *AudioEvent) {
	if event == nil || event.Payload == "" {
		s.sendError("audio event missing payload")
		return
	}

	s.mu.RLock()
	started := s.started
	capture := s.capture
	detector := s.detector
	s.mu.RUnlock()

	if !started {
		s.sendError("audio before start")
		return
	}

	data, err := base64.StdEncoding.DecodeString(event.Payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode base64 audio")
		s.sendError("audio payload is not valid base64")
		return
	}

	samples, err := audio.DecodeLinear16(data)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to decode PCM audio")
		s.sendError("audio payload is not valid 16-bit PCM")
		return
	}

	s.metrics.RecordAudioBytes(int64(len(data)))

	accepted := capture.Append(samples)
	if accepted < len(samples) {
		s.logger.Warn().
			Int("dropped", len(samples)-accepted).
			Msg("Recording cap reached, dropping samples")
	}
	// The detector sees exactly what the capture kept, so its segment
	// times line up with the analyzed buffer.
	detector.Feed(samples[:accepted])
}

func (s *RecordingSession) handleVAD(m *vad.Metrics) {
	if m == nil {
		s.sendError("vad event missing metrics")
		return
	}

	s.mu.Lock()
	s.clientVAD = m
	s.mu.Unlock()

	s.logger.Debug().
		Int("segments", len(m.SpeechSegments)).
		Float64("speech_ratio", m.SpeechRatio).
		Msg("Client activity metrics received")
}

func (s *RecordingSession) handleStop() {
	s.mu.Lock()
	s.isActive = false
	started := s.started
	capture := s.capture
	s.mu.Unlock()

	if !started {
		s.sendError("stop before start")
		return
	}

	samples := capture.Snapshot()
	if len(samples) == 0 {
		s.sendError("no audio received")
		return
	}

	s.logger.Info().
		Str("user_id", s.userID).
		Int("samples", len(samples)).
		Int("dropped", capture.Dropped()).
		Msg("Recording stopped, scoring")

	result, err := s.analyze(samples)
	if err != nil {
		s.logger.Error().Err(err).Msg("Analysis failed")
		s.metrics.RecordError("analysis", "session")
		s.sendError("analysis failed")
		return
	}

	s.send(&ServerMessage{
		Type:      "result",
		SessionID: s.sessionID,
		Result:    result,
		Tips:      report.Tips(result),
	})
}

// analyze scores the captured recording, attaching the transcription
// word count when a transcriber is available.
func (s *RecordingSession) analyze(samples []int16) (*analysis.Result, error) {
	words := observedWords(context.Background(), s.transcriber, s.metrics, s.logger,
		samples, s.sampleRate, s.config.DeepgramTimeout)

	req := analysis.Request{
		Samples:    audio.ToFloat64(samples),
		SampleRate: s.sampleRate,
		DeviceID:   s.deviceID,
		VAD:        s.activityMetrics(),
		WordCount:  words,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.engine.Analyze(ctx, req)
}

// activityMetrics picks the activity source for scoring. Client metrics
// always win. The internal detector only counts once it has found a
// segment; an empty detector result would claim the whole recording was
// silence even for speech just under its energy threshold.
func (s *RecordingSession) activityMetrics() *vad.Metrics {
	s.mu.RLock()
	clientVAD := s.clientVAD
	detector := s.detector
	s.mu.RUnlock()

	if clientVAD != nil {
		return clientVAD
	}
	if detector == nil {
		return nil
	}
	m := detector.Metrics()
	if len(m.SpeechSegments) == 0 {
		return nil
	}
	return m
}

// observedWords asks the transcriber for a word count. Failures only
// cost the hint, never the result.
func observedWords(parent context.Context, transcriber stt.Transcriber, m *observability.Metrics, logger zerolog.Logger, samples []int16, sampleRate, timeoutSeconds int) int {
	if transcriber == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(parent, time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	m.RecordSTTStart()
	words, err := transcriber.WordCount(ctx, samples, sampleRate)
	if err != nil {
		m.RecordSTTEnd(false)
		logger.Warn().Err(err).Msg("Transcription failed, result carries no word count")
		return 0
	}
	m.RecordSTTEnd(true)

	logger.Debug().Int("words", words).Msg("Transcription word count attached")
	return words
}

func (s *RecordingSession) send(msg *ServerMessage) {
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send message to client")
		s.metrics.RecordError("websocket_write", "session")
	}
}

func (s *RecordingSession) sendError(message string) {
	s.send(&ServerMessage{
		Type:      "error",
		SessionID: s.sessionID,
		Error:     message,
	})
}

// SessionID returns the session's generated ID.
func (s *RecordingSession) SessionID() string {
	return s.sessionID
}

// IsActive returns whether the session is still accepting events.
func (s *RecordingSession) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isActive
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	return fmt.Sprintf("sess-%s", uuid.New().String())
}
