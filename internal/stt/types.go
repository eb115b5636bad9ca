package stt

import "context"

// Transcriber turns a finished recording into an observed word count.
//
// A word count is presentation data only; pace scoring never depends on
// it. Callers without a transcription backend skip the lookup entirely.
type Transcriber interface {
	// WordCount transcribes the recording and returns the number of
	// words in the final transcript.
	WordCount(ctx context.Context, pcm []int16, sampleRate int) (int, error)
}
