package chatbot

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/xaenox/intent-bot/internal/models"
)

// ErrCorpusModelMismatch means the classifier produced a tag the corpus
// has no record for.
var ErrCorpusModelMismatch = errors.New("predicted tag has no corpus record")

// Selector picks a response for a tag uniformly at random.
type Selector struct {
	corpus models.Corpus

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector over c. A nil src seeds from the clock.
func NewSelector(c models.Corpus, src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Selector{corpus: c, rng: rand.New(src)}
}

// Select returns one response of the first record tagged tag.
func (s *Selector) Select(tag string) (string, error) {
	record, ok := s.corpus.Lookup(tag)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCorpusModelMismatch, tag)
	}
	if len(record.Responses) == 0 {
		return "", fmt.Errorf("%w: %q has no responses", ErrCorpusModelMismatch, tag)
	}

	s.mu.Lock()
	i := s.rng.Intn(len(record.Responses))
	s.mu.Unlock()

	return record.Responses[i], nil
}
