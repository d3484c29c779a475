package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCorpus() Corpus {
	return Corpus{
		{Tag: "greeting", Patterns: []string{"hi", "hello"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Goodbye"}},
		{Tag: "greeting", Patterns: []string{"hey"}, Responses: []string{"Hey!"}},
	}
}

func TestCorpus_TrainingSet(t *testing.T) {
	want := TrainingSet{
		Texts: []string{"hi", "hello", "bye", "hey"},
		Tags:  []string{"greeting", "greeting", "goodbye", "greeting"},
	}
	if diff := cmp.Diff(want, sampleCorpus().TrainingSet()); diff != "" {
		t.Errorf("TrainingSet() mismatch (-want +got):\n%s", diff)
	}
}

func TestCorpus_LookupFirstWins(t *testing.T) {
	c := sampleCorpus()

	rec, ok := c.Lookup("greeting")
	require.True(t, ok)
	assert.Equal(t, []string{"Hello!"}, rec.Responses)

	_, ok = c.Lookup("weather")
	assert.False(t, ok)
}

func TestCorpus_Tags(t *testing.T) {
	c := sampleCorpus()
	assert.Equal(t, []string{"greeting", "goodbye"}, c.Tags())
	assert.Equal(t, []string{"greeting"}, c.DuplicateTags())
	assert.Empty(t, c[:2].DuplicateTags())
}
