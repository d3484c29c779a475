package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var (
	ErrNoSpeech           = errors.New("no speech detected")
	ErrServiceUnavailable = errors.New("recognition service unavailable")
)

const (
	// MinAudioBytes is the smallest upload treated as a recording; anything
	// shorter is just container headers or silence.
	MinAudioBytes = 512
	// MaxAudioBytes is the transcription API upload limit.
	MaxAudioBytes = 25 << 20
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Message returns the line shown to the user when voice input fails.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoSpeech):
		return "Sorry, I could not understand the audio."
	case errors.Is(err, ErrServiceUnavailable):
		return "Could not request results from the speech recognition service."
	default:
		return "Sorry, voice input failed."
	}
}

// Reason is a short label for err, used in metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNoSpeech):
		return "no_speech"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// WhisperTranscriber uses the OpenAI audio transcription endpoint.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

func NewWhisperTranscriber(cfg WhisperConfig, logger *zap.Logger) *WhisperTranscriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: cfg.Language,
		logger:   logger,
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(audio, MaxAudioBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read audio: %v", ErrServiceUnavailable, err)
	}
	if len(data) > MaxAudioBytes {
		return "", fmt.Errorf("%w: audio exceeds %d bytes", ErrNoSpeech, MaxAudioBytes)
	}
	if len(data) < MinAudioBytes {
		return "", ErrNoSpeech
	}
	if filename == "" {
		filename = "speech.webm"
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
		Language: w.language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		w.logger.Error("Failed to transcribe audio",
			zap.Error(err),
			zap.Int("bytes", len(data)))
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrNoSpeech
	}

	w.logger.Debug("Audio transcribed",
		zap.Int("bytes", len(data)),
		zap.String("text", text))
	return text, nil
}
