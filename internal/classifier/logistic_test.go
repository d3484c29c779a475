package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(dim, idx int) SparseVector {
	return SparseVector{Indices: []int{idx}, Values: []float64{1}}
}

func TestLogisticRegression_SeparableData(t *testing.T) {
	X := []SparseVector{unit(3, 0), unit(3, 1), unit(3, 2), unit(3, 0)}
	y := []string{"b", "a", "c", "b"}

	lr := NewLogisticRegression()
	res, err := lr.Fit(X, y, 3)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Greater(t, res.Iterations, 0)
	assert.Equal(t, []string{"a", "b", "c"}, lr.Classes())

	for i, x := range X {
		got, err := lr.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, y[i], got)
	}

	proba, err := lr.PredictProba(unit(3, 1))
	require.NoError(t, err)
	require.Len(t, proba, 3)
	var sum float64
	for _, p := range proba {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, proba[0], proba[1])
	assert.Greater(t, proba[0], proba[2])
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	X := []SparseVector{
		{Indices: []int{0, 1}, Values: []float64{0.6, 0.8}},
		{Indices: []int{1, 2}, Values: []float64{0.8, 0.6}},
		{Indices: []int{2}, Values: []float64{1}},
	}
	y := []string{"x", "y", "z"}

	for _, seed := range []int64{0, 7} {
		first := &LogisticRegression{C: 1, MaxIter: 500, Tolerance: 1e-6, Seed: seed}
		second := &LogisticRegression{C: 1, MaxIter: 500, Tolerance: 1e-6, Seed: seed}

		r1, err := first.Fit(X, y, 3)
		require.NoError(t, err)
		r2, err := second.Fit(X, y, 3)
		require.NoError(t, err)

		assert.Equal(t, r1, r2)
		assert.Equal(t, first.weights, second.weights)
		assert.Equal(t, first.bias, second.bias)
	}
}

func TestLogisticRegression_IterationCap(t *testing.T) {
	X := []SparseVector{unit(2, 0), unit(2, 1)}
	y := []string{"a", "b"}

	lr := &LogisticRegression{C: 1, MaxIter: 1, Tolerance: 1e-12}
	res, err := lr.Fit(X, y, 2)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)

	// parameters from the single step are still usable
	got, err := lr.Predict(unit(2, 0))
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestLogisticRegression_SingleClass(t *testing.T) {
	lr := NewLogisticRegression()
	res, err := lr.Fit([]SparseVector{unit(1, 0)}, []string{"only"}, 1)
	require.NoError(t, err)
	assert.True(t, res.Converged)

	got, err := lr.Predict(SparseVector{})
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestLogisticRegression_EmptyVectorStillPredicts(t *testing.T) {
	X := []SparseVector{unit(2, 0), unit(2, 1), unit(2, 1)}
	y := []string{"a", "b", "b"}

	lr := NewLogisticRegression()
	_, err := lr.Fit(X, y, 2)
	require.NoError(t, err)

	got, err := lr.Predict(SparseVector{})
	require.NoError(t, err)
	// with no features only the intercepts count, and "b" is more frequent
	assert.Equal(t, "b", got)
}

func TestLogisticRegression_Errors(t *testing.T) {
	lr := NewLogisticRegression()

	_, err := lr.Predict(unit(1, 0))
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = lr.Fit([]SparseVector{unit(1, 0)}, []string{"a", "b"}, 1)
	assert.Error(t, err)

	_, err = lr.Fit(nil, nil, 1)
	assert.Error(t, err)

	bad := &LogisticRegression{C: 0, MaxIter: 10}
	_, err = bad.Fit([]SparseVector{unit(1, 0)}, []string{"a"}, 1)
	assert.Error(t, err)
}
