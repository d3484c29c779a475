package chatbot

import (
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/xaenox/intent-bot/internal/classifier"
	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

const (
	// FallbackResponse is sent when a predicted tag has no corpus record.
	FallbackResponse = "Sorry, I didn't get that. Could you rephrase?"
	// FarewellMessage is shown when a conversation ends.
	FarewellMessage = "Thank you for chatting with me. Have a great day!"
)

var farewells = []string{"goodbye", "bye"}

// IsFarewell reports whether a bot response ends the session: it matches
// "goodbye" or "bye" ignoring case and surrounding punctuation.
func IsFarewell(response string) bool {
	trimmed := strings.TrimFunc(response, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	for _, f := range farewells {
		if strings.EqualFold(trimmed, f) {
			return true
		}
	}
	return false
}

// Engine answers single conversation turns from a trained classifier and
// its corpus. It keeps no per-session state.
type Engine struct {
	classifier classifier.Classifier
	selector   *Selector
	logger     *zap.Logger
}

// New builds an Engine. src seeds response selection; pass a fixed source
// for reproducible replies.
func New(clf classifier.Classifier, c models.Corpus, src rand.Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		classifier: clf,
		selector:   NewSelector(c, src),
		logger:     logger,
	}
}

// Respond classifies text and picks a reply for the predicted tag. It never
// fails: a tag missing from the corpus yields FallbackResponse.
func (e *Engine) Respond(text string) models.Reply {
	start := time.Now()
	tag := e.classifier.Predict(text)
	metrics.ClassifyDuration.Observe(time.Since(start).Seconds())

	reply := models.Reply{Input: text, Tag: tag}

	response, err := e.selector.Select(tag)
	if err != nil {
		if errors.Is(err, ErrCorpusModelMismatch) {
			metrics.FallbackTotal.Inc()
		}
		e.logger.Error("Failed to select response",
			zap.Error(err),
			zap.String("tag", tag))
		reply.Response = FallbackResponse
		reply.Fallback = true
		return reply
	}

	reply.Response = response
	reply.Ended = IsFarewell(response)
	e.logger.Debug("Turn classified",
		zap.String("tag", tag),
		zap.Bool("ended", reply.Ended))
	return reply
}

// ClassifyAndRespond returns only the reply text for input.
func (e *Engine) ClassifyAndRespond(input string) string {
	return e.Respond(input).Response
}
