package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog/log"

	"github.com/orato-ai/speech-scorer/internal/audio"
	"github.com/orato-ai/speech-scorer/internal/config"
	"github.com/orato-ai/speech-scorer/internal/resilience"
)

// sttChunkBytes is the write size for streaming a recording to Deepgram.
const sttChunkBytes = 8192

// transcriptCollector implements the LiveMessageCallback interface.
// It embeds the default handler and overrides only Message and Error,
// accumulating final word counts until the stream completes.
type transcriptCollector struct {
	*websocketv1api.DefaultCallbackHandler // Embed default handler for methods we don't override

	mu     sync.Mutex
	words  int
	err    error
	closed bool
	done   chan struct{}
}

func newTranscriptCollector() *transcriptCollector {
	return &transcriptCollector{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		done:                   make(chan struct{}),
	}
}

// Message overrides the default handler to count words in final results.
func (c *transcriptCollector) Message(msg *msginterfaces.MessageResponse) error {
	if msg == nil {
		return nil
	}

	switch msg.Type {
	case "Results", "Message":
		// Interim results repeat words that a later final result
		// will carry again, so only finals are counted.
		if !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
			return nil
		}

		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return nil
		}

		n := len(alt.Words)
		if n == 0 {
			n = len(strings.Fields(alt.Transcript))
		}

		c.mu.Lock()
		c.words += n
		c.mu.Unlock()

	case "Metadata":
		// Metadata arrives after the last result once Finish has been
		// sent, so it doubles as the end-of-stream signal.
		c.finish(nil)
	}

	return nil
}

// Error overrides the default handler to fail the pending transcription.
func (c *transcriptCollector) Error(errorResponse *msginterfaces.ErrorResponse) error {
	c.finish(fmt.Errorf("deepgram stream error: %+v", errorResponse))
	return nil
}

func (c *transcriptCollector) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}

func (c *transcriptCollector) result() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.words, c.err
}

// DeepgramTranscriber counts spoken words by running a finished
// recording through Deepgram's live transcription API in one shot.
type DeepgramTranscriber struct {
	config         *config.Config
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    *resilience.RetryConfig
}

// NewDeepgramTranscriber creates a transcriber backed by Deepgram.
func NewDeepgramTranscriber(cfg *config.Config) *DeepgramTranscriber {
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramTranscriber{
		config:         cfg,
		circuitBreaker: circuitBreaker,
		retryConfig: &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		},
	}
}

// WordCount transcribes the recording and returns the number of words
// in the final transcript. Transient failures are retried under the
// circuit breaker; an open breaker fails immediately.
func (d *DeepgramTranscriber) WordCount(ctx context.Context, pcm []int16, sampleRate int) (int, error) {
	if len(pcm) == 0 {
		return 0, fmt.Errorf("empty recording")
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	var words int
	err := resilience.Retry(ctx, func() error {
		return d.circuitBreaker.Call(func() error {
			n, err := d.transcribeOnce(ctx, pcm, sampleRate)
			if err != nil {
				return err
			}
			words = n
			return nil
		})
	}, d.retryConfig, retryableTranscription)
	if err != nil {
		return 0, err
	}

	return words, nil
}

// transcribeOnce streams the whole recording, signals end of audio, and
// waits for the stream to complete.
func (d *DeepgramTranscriber) transcribeOnce(ctx context.Context, pcm []int16, sampleRate int) (int, error) {
	collector := newTranscriptCollector()

	// Create Deepgram transcription options (v3 API)
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:      d.config.DeepgramModel,
		Language:   d.config.DeepgramLanguage,
		Punctuate:  true,
		Encoding:   "linear16",
		Channels:   1,
		SampleRate: sampleRate,
	}

	// Create Deepgram WebSocket client using callback (v3 API)
	// Using nil for cOptions to use defaults
	client, err := listenClient.NewWSUsingCallback(
		ctx,
		d.config.DeepgramAPIKey,
		nil, // ClientOptions - nil uses defaults
		tOptions,
		collector,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create Deepgram client: %w", err)
	}

	payload := audio.EncodeLinear16(pcm)
	for offset := 0; offset < len(payload); offset += sttChunkBytes {
		end := offset + sttChunkBytes
		if end > len(payload) {
			end = len(payload)
		}
		if _, err := client.Write(payload[offset:end]); err != nil {
			client.Finish()
			return 0, fmt.Errorf("failed to send audio to Deepgram: %w", err)
		}
	}

	// Finish tells Deepgram no more audio is coming; the server then
	// flushes remaining results and closes with a Metadata message.
	client.Finish()

	timeout := time.Duration(d.config.DeepgramTimeout) * time.Second
	select {
	case <-collector.done:
		words, err := collector.result()
		if err != nil {
			return 0, err
		}
		log.Debug().
			Int("words", words).
			Int("sample_rate", sampleRate).
			Msg("Transcription complete")
		return words, nil

	case <-ctx.Done():
		return 0, ctx.Err()

	case <-time.After(timeout):
		// A stalled stream can still have produced usable finals.
		words, _ := collector.result()
		if words > 0 {
			log.Warn().
				Int("words", words).
				Msg("Transcription timed out, keeping partial word count")
			return words, nil
		}
		return 0, resilience.NewRetryableError(fmt.Errorf("transcription timed out after %s", timeout))
	}
}

// retryableTranscription classifies transcription errors for the retry
// loop. An open breaker is terminal for this recording; transient
// transport errors and marked errors are retried.
func retryableTranscription(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return resilience.IsRetryable(err) || resilience.IsRetryableNetworkError(err)
}
