package chatbot

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/intent-bot/internal/classifier"
	"github.com/xaenox/intent-bot/internal/corpus"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap/zaptest"
)

type stubClassifier struct {
	tag string
}

func (s stubClassifier) Predict(string) string { return s.tag }

func testCorpus() models.Corpus {
	return models.Corpus{
		{Tag: "greeting", Patterns: []string{"hi", "hello"}, Responses: []string{"Hello!", "Hi there!"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Goodbye!"}},
		{Tag: "budget", Patterns: []string{"how do I create a budget", "budgeting tips"}, Responses: []string{"Track income", "Use the 50/30/20 rule", "Use a spreadsheet"}},
	}
}

func newTestEngine(t *testing.T, c models.Corpus) *Engine {
	t.Helper()
	m, err := classifier.Train(c, classifier.DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return New(m, c, rand.NewSource(1), zaptest.NewLogger(t))
}

func TestEngine_RespondsFromOwnTag(t *testing.T) {
	c := testCorpus()
	e := newTestEngine(t, c)

	for _, intent := range c {
		for _, p := range intent.Patterns {
			for i := 0; i < 5; i++ {
				reply := e.Respond(p)
				assert.Equal(t, intent.Tag, reply.Tag)
				assert.Contains(t, intent.Responses, reply.Response)
				assert.False(t, reply.Fallback)
			}
		}
	}
}

func TestEngine_BuiltInCorpusRecallsEveryPattern(t *testing.T) {
	c := corpus.Default()
	m, err := classifier.Train(c, classifier.DefaultOptions(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy(c))

	e := New(m, c, rand.NewSource(1), zaptest.NewLogger(t))
	for _, intent := range c {
		for _, p := range intent.Patterns {
			reply := e.Respond(p)
			assert.Equal(t, intent.Tag, reply.Tag, "pattern %q", p)
			assert.Contains(t, intent.Responses, reply.Response, "pattern %q", p)
		}
	}
}

func TestEngine_GreetingScenario(t *testing.T) {
	e := newTestEngine(t, testCorpus())

	for i := 0; i < 20; i++ {
		assert.Contains(t, []string{"Hello!", "Hi there!"}, e.ClassifyAndRespond("hello"))
	}
}

func TestEngine_GoodbyeEndsSession(t *testing.T) {
	e := newTestEngine(t, testCorpus())

	reply := e.Respond("bye")
	assert.Equal(t, "Goodbye!", reply.Response)
	assert.True(t, reply.Ended)

	assert.False(t, e.Respond("hello").Ended)
}

func TestEngine_SameTagDifferentStrings(t *testing.T) {
	e := newTestEngine(t, testCorpus())

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		reply := e.Respond("budgeting tips")
		assert.Equal(t, "budget", reply.Tag)
		seen[reply.Response] = true
	}
	assert.Len(t, seen, 3)
}

func TestEngine_BlankInput(t *testing.T) {
	c := testCorpus()
	e := newTestEngine(t, c)

	for _, in := range []string{"", "   ", "\n\t", "xyzzy"} {
		reply := e.Respond(in)
		record, ok := c.Lookup(reply.Tag)
		require.True(t, ok, "input %q", in)
		assert.Contains(t, record.Responses, reply.Response)
	}
}

func TestEngine_MismatchFallsBack(t *testing.T) {
	e := New(stubClassifier{tag: "missing"}, testCorpus(), rand.NewSource(1), zaptest.NewLogger(t))

	reply := e.Respond("hello")
	assert.Equal(t, FallbackResponse, reply.Response)
	assert.Equal(t, "missing", reply.Tag)
	assert.True(t, reply.Fallback)
	assert.False(t, reply.Ended)
}

func TestEngine_SeededRepliesAreReproducible(t *testing.T) {
	c := testCorpus()
	clf := stubClassifier{tag: "budget"}

	a := New(clf, c, rand.NewSource(42), nil)
	b := New(clf, c, rand.NewSource(42), nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.ClassifyAndRespond("x"), b.ClassifyAndRespond("x"))
	}
}

func TestEngine_Concurrent(t *testing.T) {
	e := newTestEngine(t, testCorpus())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, "greeting", e.Respond("hi").Tag)
			}
		}()
	}
	wg.Wait()
}

func TestIsFarewell(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"goodbye", true},
		{"Goodbye", true},
		{"Goodbye!", true},
		{"BYE", true},
		{" bye. ", true},
		{"See you later", false},
		{"Goodbye and good luck", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFarewell(tt.in))
		})
	}
}
