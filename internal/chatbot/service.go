package chatbot

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/models"
	"github.com/xaenox/intent-bot/internal/storage"
	"github.com/xaenox/intent-bot/internal/voice"
	"go.uber.org/zap"
)

// ErrVoiceDisabled is returned by HandleVoice when no transcriber is set.
var ErrVoiceDisabled = errors.New("voice input is not configured")

// Service runs a conversation turn for a shell: classify, reply and log.
type Service struct {
	engine      *Engine
	store       storage.Storage
	transcriber voice.Transcriber
	logger      *zap.Logger
}

// NewService wires an engine to a conversation log. transcriber may be nil.
func NewService(engine *Engine, store storage.Storage, transcriber voice.Transcriber, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:      engine,
		store:       store,
		transcriber: transcriber,
		logger:      logger,
	}
}

// VoiceEnabled reports whether HandleVoice can transcribe audio.
func (s *Service) VoiceEnabled() bool {
	return s.transcriber != nil
}

// Handle answers input and appends the turn to the log. A logging failure
// is recorded but does not affect the reply.
func (s *Service) Handle(ctx context.Context, input string, source models.Source) models.Reply {
	reply := s.engine.Respond(input)
	metrics.TurnsTotal.WithLabelValues(reply.Tag, string(source)).Inc()

	entry := &models.ConversationEntry{
		Input:    input,
		Response: reply.Response,
		Tag:      reply.Tag,
		Source:   source,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		metrics.LogErrors.Inc()
		s.logger.Error("Failed to save conversation entry",
			zap.Error(err),
			zap.String("source", string(source)),
			zap.String("tag", reply.Tag))
	}

	return reply
}

// HandleVoice transcribes audio and answers it. When transcription fails
// the turn is skipped: nothing is classified or logged and the error
// (ErrNoSpeech, ErrServiceUnavailable or ErrVoiceDisabled) is returned for
// the shell to show via voice.Message.
func (s *Service) HandleVoice(ctx context.Context, audio io.Reader, filename string, source models.Source) (string, models.Reply, error) {
	if s.transcriber == nil {
		return "", models.Reply{}, ErrVoiceDisabled
	}

	transcript, err := s.transcriber.Transcribe(ctx, audio, filename)
	if err == nil && strings.TrimSpace(transcript) == "" {
		err = voice.ErrNoSpeech
	}
	if err != nil {
		metrics.VoiceFailures.WithLabelValues(voice.Reason(err)).Inc()
		s.logger.Warn("Voice input skipped",
			zap.Error(err),
			zap.String("source", string(source)))
		return "", models.Reply{}, err
	}

	return transcript, s.Handle(ctx, transcript, source), nil
}

// History returns logged turns newest first.
func (s *Service) History(ctx context.Context, limit int) ([]models.ConversationEntry, error) {
	return s.store.History(ctx, limit)
}
