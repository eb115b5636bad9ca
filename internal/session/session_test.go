package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orato-ai/speech-scorer/internal/analysis"
	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/config"
	"github.com/orato-ai/speech-scorer/internal/stt"
	"github.com/orato-ai/speech-scorer/internal/vad"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxRecordingSeconds: 300,
		VADEnergyThreshold:  500.0,
		VADSpeechFrames:     2,
		VADSilenceFrames:    10,
		DeepgramTimeout:     5,
	}
}

type fakeTranscriber struct {
	words int
	err   error
}

func (f *fakeTranscriber) WordCount(ctx context.Context, pcm []int16, sampleRate int) (int, error) {
	return f.words, f.err
}

// dialSession starts a server around the session handler and dials it.
func dialSession(t *testing.T, cfg *config.Config, transcriber stt.Transcriber) *websocket.Conn {
	t.Helper()

	engine := analysis.NewEngine(nil, nil)
	srv := httptest.NewServer(Handler(cfg, engine, transcriber))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial session endpoint: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, msg *ClientMessage) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("Failed to send %s event: %v", msg.Type, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) *ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read server event: %v", err)
	}

	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to parse server event: %v", err)
	}
	return &msg
}

// startRecording performs the start handshake at 16 kHz.
func startRecording(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	sendEvent(t, conn, &ClientMessage{
		Type:  "start",
		Start: &StartEvent{UserID: "user-1", SampleRate: 16000, Format: "linear16"},
	})

	ready := readEvent(t, conn)
	if ready.Type != "ready" {
		t.Fatalf("Expected ready event, got %s (%s)", ready.Type, ready.Error)
	}
	if !strings.HasPrefix(ready.SessionID, "sess-") {
		t.Fatalf("Expected sess- prefixed session ID, got %q", ready.SessionID)
	}
	return ready.SessionID
}

// speechPayload returns one second of constant-level 16 kHz audio as a
// base64 chunk. Amplitude 3000 sits well above the detector threshold.
func speechPayload() string {
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = 3000
	}
	return base64.StdEncoding.EncodeToString(audio.EncodeLinear16(samples))
}

func silencePayload(n int) string {
	return base64.StdEncoding.EncodeToString(audio.EncodeLinear16(make([]int16, n)))
}

func TestSession_FullFlow(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)
	sessionID := startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	result := readEvent(t, conn)
	if result.Type != "result" {
		t.Fatalf("Expected result event, got %s (%s)", result.Type, result.Error)
	}
	if result.SessionID != sessionID {
		t.Errorf("Expected session ID %q, got %q", sessionID, result.SessionID)
	}
	if result.Result == nil {
		t.Fatal("Expected a scoring result")
	}

	if result.Result.OverallScore < 0 || result.Result.OverallScore > 100 {
		t.Errorf("Expected overall score in [0,100], got %d", result.Result.OverallScore)
	}
	if result.Result.Volume.Score < 70 {
		t.Errorf("Expected a healthy volume score for amplitude 3000, got %d", result.Result.Volume.Score)
	}
	if result.Result.Pauses.PauseRatio != 0 {
		t.Errorf("Expected pause ratio 0 for continuous audio, got %f", result.Result.Pauses.PauseRatio)
	}
}

func TestSession_AudioBeforeStart(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)

	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: silencePayload(160)}})

	msg := readEvent(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error event, got %s", msg.Type)
	}
	if !strings.Contains(msg.Error, "before start") {
		t.Errorf("Expected 'before start' error, got %q", msg.Error)
	}
}

func TestSession_InvalidStart(t *testing.T) {
	tests := []struct {
		name  string
		start *StartEvent
	}{
		{"zero sample rate", &StartEvent{SampleRate: 0}},
		{"negative sample rate", &StartEvent{SampleRate: -8000}},
		{"unsupported format", &StartEvent{SampleRate: 16000, Format: "mulaw"}},
		{"missing body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialSession(t, testConfig(), nil)
			sendEvent(t, conn, &ClientMessage{Type: "start", Start: tt.start})

			msg := readEvent(t, conn)
			if msg.Type != "error" {
				t.Errorf("Expected error event, got %s", msg.Type)
			}
		})
	}
}

func TestSession_DoubleStart(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)
	startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{
		Type:  "start",
		Start: &StartEvent{SampleRate: 48000},
	})

	msg := readEvent(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error event for double start, got %s", msg.Type)
	}
	if !strings.Contains(msg.Error, "already started") {
		t.Errorf("Expected 'already started' error, got %q", msg.Error)
	}
}

func TestSession_StopWithoutAudio(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)
	startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	msg := readEvent(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error event, got %s", msg.Type)
	}
	if !strings.Contains(msg.Error, "no audio") {
		t.Errorf("Expected 'no audio' error, got %q", msg.Error)
	}
}

func TestSession_ClientActivityMetricsWin(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)
	startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{
		Type: "vad",
		VAD: &vad.Metrics{
			SpeechSegments:    []vad.SpeechSegment{{StartMs: 0, EndMs: 750, DurationMs: 750}},
			TotalSpeechTimeMs: 750,
			SpeechRatio:       0.75,
		},
	})
	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	result := readEvent(t, conn)
	if result.Type != "result" {
		t.Fatalf("Expected result event, got %s (%s)", result.Type, result.Error)
	}

	if result.Result.Pauses.PauseRatio != 0.25 {
		t.Errorf("Expected client-supplied pause ratio 0.25, got %f", result.Result.Pauses.PauseRatio)
	}
	if result.Result.SpeechRate.Method != analysis.MethodVADEnhanced {
		t.Errorf("Expected vad-enhanced method, got %s", result.Result.SpeechRate.Method)
	}
}

func TestSession_WordCountAttached(t *testing.T) {
	conn := dialSession(t, testConfig(), &fakeTranscriber{words: 37})
	startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	result := readEvent(t, conn)
	if result.Type != "result" {
		t.Fatalf("Expected result event, got %s (%s)", result.Type, result.Error)
	}
	if result.Result.SpeechRate.ObservedWords != 37 {
		t.Errorf("Expected 37 observed words, got %d", result.Result.SpeechRate.ObservedWords)
	}
}

func TestSession_TranscriberFailureStillScores(t *testing.T) {
	conn := dialSession(t, testConfig(), &fakeTranscriber{err: errors.New("service down")})
	startRecording(t, conn)

	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	result := readEvent(t, conn)
	if result.Type != "result" {
		t.Fatalf("Expected result despite transcriber failure, got %s (%s)", result.Type, result.Error)
	}
	if result.Result.SpeechRate.ObservedWords != 0 {
		t.Errorf("Expected no observed words, got %d", result.Result.SpeechRate.ObservedWords)
	}
}

func TestSession_RecordingCapTruncates(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRecordingSeconds = 1

	conn := dialSession(t, cfg, nil)
	startRecording(t, conn)

	// Two seconds against a one second cap
	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{Type: "audio", Audio: &AudioEvent{Payload: speechPayload()}})
	sendEvent(t, conn, &ClientMessage{Type: "stop"})

	result := readEvent(t, conn)
	if result.Type != "result" {
		t.Fatalf("Expected result event, got %s (%s)", result.Type, result.Error)
	}
	if result.Result.ResponseTime.ResponseTimeMs > 1000 {
		t.Errorf("Expected a capped recording no longer than 1000ms, got response time %d",
			result.Result.ResponseTime.ResponseTimeMs)
	}
}

func TestSession_MalformedMessage(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Failed to send raw message: %v", err)
	}

	msg := readEvent(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error event, got %s", msg.Type)
	}
	if !strings.Contains(msg.Error, "malformed") {
		t.Errorf("Expected malformed message error, got %q", msg.Error)
	}
}

func TestSession_UnknownEvent(t *testing.T) {
	conn := dialSession(t, testConfig(), nil)

	sendEvent(t, conn, &ClientMessage{Type: "rewind"})

	msg := readEvent(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error event, got %s", msg.Type)
	}
	if !strings.Contains(msg.Error, "rewind") {
		t.Errorf("Expected unknown event error naming the type, got %q", msg.Error)
	}
}
