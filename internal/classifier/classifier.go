package classifier

import (
	"fmt"

	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

// Classifier maps free text to an intent tag. It always answers with one
// of the tags it was trained on.
type Classifier interface {
	Predict(text string) string
}

// Options control training of a Model.
type Options struct {
	NGramMin  int
	NGramMax  int
	C         float64
	MaxIter   int
	Tolerance float64
	Seed      int64
}

// DefaultOptions returns unigram through 4-gram features with C=1 and a
// 10000 iteration cap.
func DefaultOptions() Options {
	return Options{
		NGramMin:  1,
		NGramMax:  4,
		C:         1.0,
		MaxIter:   10000,
		Tolerance: 1e-4,
	}
}

// Model is a fitted vectorizer plus classifier. It is immutable once Train
// returns and safe for concurrent use.
type Model struct {
	vectorizer *Vectorizer
	lr         *LogisticRegression
	fit        FitResult
}

// Train fits a new Model on every pattern in c.
func Train(c models.Corpus, opts Options, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ts := c.TrainingSet()
	if len(ts.Texts) == 0 {
		return nil, fmt.Errorf("no training patterns: %w", ErrEmptyVocabulary)
	}

	vec := NewVectorizer(opts.NGramMin, opts.NGramMax)
	X, err := vec.FitTransform(ts.Texts)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}

	lr := &LogisticRegression{
		C:         opts.C,
		MaxIter:   opts.MaxIter,
		Tolerance: opts.Tolerance,
		Seed:      opts.Seed,
	}
	res, err := lr.Fit(X, ts.Tags, vec.Dim())
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	if !res.Converged {
		logger.Warn("Classifier did not converge, using last parameters",
			zap.Int("iterations", res.Iterations),
			zap.Int("max_iter", opts.MaxIter),
			zap.Float64("loss", res.Loss))
	}
	logger.Info("Model trained",
		zap.Int("samples", len(ts.Texts)),
		zap.Int("classes", len(lr.Classes())),
		zap.Int("features", vec.Dim()),
		zap.Int("iterations", res.Iterations),
		zap.Bool("converged", res.Converged))

	return &Model{vectorizer: vec, lr: lr, fit: res}, nil
}

// Predict returns the best scoring tag for text. Text with no known
// n-grams still gets a tag.
func (m *Model) Predict(text string) string {
	tag, err := m.lr.Predict(m.vectorizer.Transform(text))
	if err != nil {
		// unreachable for a model built by Train
		panic(err)
	}
	return tag
}

// Probabilities returns the class probabilities for text keyed by tag.
func (m *Model) Probabilities(text string) map[string]float64 {
	proba, err := m.lr.PredictProba(m.vectorizer.Transform(text))
	if err != nil {
		panic(err)
	}
	out := make(map[string]float64, len(proba))
	for i, tag := range m.lr.classes {
		out[tag] = proba[i]
	}
	return out
}

// Classes returns the tags the model can predict, sorted.
func (m *Model) Classes() []string {
	return m.lr.Classes()
}

// Features returns the vocabulary size.
func (m *Model) Features() int {
	return m.vectorizer.Dim()
}

// FitResult reports how training finished.
func (m *Model) FitResult() FitResult {
	return m.fit
}

// Accuracy returns the fraction of the corpus' own patterns that the model
// classifies as their own tag.
func (m *Model) Accuracy(c models.Corpus) float64 {
	ts := c.TrainingSet()
	if len(ts.Texts) == 0 {
		return 0
	}
	var hits int
	for i, text := range ts.Texts {
		if m.Predict(text) == ts.Tags[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(ts.Texts))
}
