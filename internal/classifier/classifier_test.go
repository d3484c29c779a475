package classifier

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap/zaptest"
)

func testCorpus() models.Corpus {
	return models.Corpus{
		{Tag: "greeting", Patterns: []string{"hi", "hello", "good morning"}, Responses: []string{"Hello!", "Hi there!"}},
		{Tag: "goodbye", Patterns: []string{"bye", "see you later"}, Responses: []string{"Goodbye!"}},
		{Tag: "budget", Patterns: []string{"how do I create a budget", "budgeting tips"}, Responses: []string{"Track your spending."}},
		{Tag: "thanks", Patterns: []string{"thank you", "thanks a lot"}, Responses: []string{"You're welcome"}},
	}
}

func TestTrain_RecallsTrainingPatterns(t *testing.T) {
	c := testCorpus()
	m, err := Train(c, DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, intent := range c {
		for _, p := range intent.Patterns {
			assert.Equal(t, intent.Tag, m.Predict(p), "pattern %q", p)
		}
	}
	assert.Equal(t, 1.0, m.Accuracy(c))
	assert.True(t, m.FitResult().Converged)
	assert.Equal(t, []string{"budget", "goodbye", "greeting", "thanks"}, m.Classes())
	assert.Greater(t, m.Features(), 0)
}

func TestTrain_PhraseMatching(t *testing.T) {
	m, err := Train(testCorpus(), DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "greeting", m.Predict("Hello"))
	assert.Equal(t, "greeting", m.Predict("hello, is anybody there?"))
	assert.Equal(t, "budget", m.Predict("I want to create a budget"))
	assert.Equal(t, "goodbye", m.Predict("ok bye"))
}

func TestTrain_AlwaysPredictsATag(t *testing.T) {
	m, err := Train(testCorpus(), DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)

	classes := m.Classes()
	for _, in := range []string{"", "   ", "zzz qqq", "?!", "a"} {
		assert.Contains(t, classes, m.Predict(in), "input %q", in)
	}
}

func TestTrain_SameTagEveryTime(t *testing.T) {
	c := testCorpus()
	first, err := Train(c, DefaultOptions(), nil)
	require.NoError(t, err)
	second, err := Train(c, DefaultOptions(), nil)
	require.NoError(t, err)

	for _, in := range []string{"hello", "what is this", "budget please", ""} {
		assert.Equal(t, first.Predict(in), first.Predict(in))
		assert.Equal(t, first.Predict(in), second.Predict(in))
		assert.Equal(t, first.Probabilities(in), second.Probabilities(in))
	}
}

func TestTrain_ConcurrentPredict(t *testing.T) {
	m, err := Train(testCorpus(), DefaultOptions(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "greeting", m.Predict("hello"))
			}
		}()
	}
	wg.Wait()
}

func TestTrain_NonConvergenceIsNotAnError(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIter = 1
	opts.Tolerance = 1e-12

	m, err := Train(testCorpus(), opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, m.FitResult().Converged)
	assert.Contains(t, m.Classes(), m.Predict("hello"))
}

func TestTrain_Errors(t *testing.T) {
	_, err := Train(models.Corpus{}, DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = Train(models.Corpus{{Tag: "x", Patterns: []string{"?"}, Responses: []string{"r"}}}, DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestModel_Probabilities(t *testing.T) {
	m, err := Train(testCorpus(), DefaultOptions(), nil)
	require.NoError(t, err)

	proba := m.Probabilities("thank you")
	require.Len(t, proba, 4)
	var sum float64
	best := ""
	for tag, p := range proba {
		sum += p
		if best == "" || p > proba[best] {
			best = tag
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, "thanks", best)
}
