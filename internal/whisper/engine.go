package whisper

import "context"

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

// Engine runs speech-to-text inference. The call blocks until the full
// transcript is available; there is no intermediate progress signal.
type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}
