package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello", []string{"hello"}},
		{"Hi, I'm here!", []string{"hi", "here"}},
		{"How do I create a budget?", []string{"how", "do", "create", "budget"}},
		{"  ", nil},
		{"", nil},
		{"Café crème 42", []string{"café", "crème", "42"}},
		{"ÄRGER über MIETE", []string{"ärger", "über", "miete"}},
		{"cafe\u0301 ok", []string{"cafe\u0301", "ok"}},
		{"n\u0303o", []string{"n\u0303o"}},
		{"\u0928\u092e\u0938\u094d\u0924\u0947 dost", []string{"\u0928\u092e\u0938\u094d\u0924\u0947", "dost"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestVectorizer_FitBuildsSortedNGramVocabulary(t *testing.T) {
	v := NewVectorizer(1, 2)
	require.NoError(t, v.Fit([]string{"how do I", "do it"}))

	assert.Equal(t, []string{"do", "do it", "how", "how do", "it"}, v.Vocabulary())
	assert.Equal(t, 5, v.Dim())

	idf, ok := v.IDF("do")
	require.True(t, ok)
	assert.InDelta(t, 1.0, idf, 1e-12)

	idf, ok = v.IDF("how do")
	require.True(t, ok)
	assert.InDelta(t, math.Log(3.0/2.0)+1, idf, 1e-12)

	_, ok = v.IDF("unknown")
	assert.False(t, ok)
}

func TestVectorizer_FourGrams(t *testing.T) {
	v := NewVectorizer(1, 4)
	require.NoError(t, v.Fit([]string{"how do we create budget"}))

	vocab := v.Vocabulary()
	assert.Contains(t, vocab, "how do we create")
	assert.Contains(t, vocab, "do we create budget")
	assert.NotContains(t, vocab, "how do we create budget")
	// 5 unigrams + 4 bigrams + 3 trigrams + 2 four-grams
	assert.Len(t, vocab, 14)
}

func TestVectorizer_Transform(t *testing.T) {
	v := NewVectorizer(1, 2)
	require.NoError(t, v.Fit([]string{"how do I", "do it"}))

	t.Run("unit length", func(t *testing.T) {
		vec := v.Transform("how do it")
		require.NotZero(t, vec.Len())
		var norm float64
		for _, x := range vec.Values {
			norm += x * x
		}
		assert.InDelta(t, 1.0, norm, 1e-12)
		assert.IsIncreasing(t, vec.Indices)
	})

	t.Run("unknown n-grams are ignored", func(t *testing.T) {
		vec := v.Transform("do something entirely new")
		require.Equal(t, 1, vec.Len())
		assert.Equal(t, 0, vec.Indices[0])
		assert.InDelta(t, 1.0, vec.Values[0], 1e-12)
	})

	t.Run("nothing known", func(t *testing.T) {
		assert.Zero(t, v.Transform("completely different").Len())
		assert.Zero(t, v.Transform("").Len())
		assert.Zero(t, v.Transform("   ").Len())
	})

	t.Run("repeated terms weigh more", func(t *testing.T) {
		vec := v.Transform("how how it")
		require.Equal(t, 2, vec.Len())
		// "how" (index 2) appears twice with the same idf as "it" (index 4)
		assert.InDelta(t, 2*vec.Values[1], vec.Values[0], 1e-12)
	})
}

func TestVectorizer_EmptyVocabulary(t *testing.T) {
	v := NewVectorizer(1, 4)
	err := v.Fit([]string{"a", "I", "?"})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestVectorizer_FitTransform(t *testing.T) {
	v := NewVectorizer(1, 1)
	out, err := v.FitTransform([]string{"hello there", "bye"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].Len())
	assert.Equal(t, 1, out[1].Len())
}
