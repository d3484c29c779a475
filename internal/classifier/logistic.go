package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var ErrNotFitted = errors.New("classifier is not fitted")

const (
	historySize   = 10
	armijo        = 1e-4
	maxLineSearch = 40
	// relative objective decrease below which the optimiser stops
	ftol = 2.220446049250313e-09
)

// FitResult describes how the optimiser finished.
type FitResult struct {
	Iterations int
	Converged  bool
	Loss       float64
}

// LogisticRegression is a multinomial (softmax) linear classifier with an
// L2 penalty on the weights. Intercepts are not penalised.
type LogisticRegression struct {
	// C is the inverse regularisation strength.
	C         float64
	MaxIter   int
	Tolerance float64
	// Seed selects the initial point. Zero starts from all-zero weights.
	Seed int64

	classes []string
	dim     int
	weights [][]float64
	bias    []float64
}

// NewLogisticRegression returns a classifier with the usual defaults
// (C=1, 10000 iterations, gradient tolerance 1e-4).
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: 10000, Tolerance: 1e-4}
}

// Classes returns the sorted class labels.
func (lr *LogisticRegression) Classes() []string {
	out := make([]string, len(lr.classes))
	copy(out, lr.classes)
	return out
}

// Fit trains on X (dim columns) and labels y. Hitting MaxIter is not an
// error: the best parameters found so far are kept and Converged is false.
func (lr *LogisticRegression) Fit(X []SparseVector, y []string, dim int) (FitResult, error) {
	if len(X) != len(y) {
		return FitResult{}, fmt.Errorf("got %d samples and %d labels", len(X), len(y))
	}
	if len(X) == 0 {
		return FitResult{}, errors.New("no training samples")
	}
	if lr.C <= 0 {
		return FitResult{}, fmt.Errorf("C must be positive, got %v", lr.C)
	}

	classes := uniqueSorted(y)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, len(y))
	for i, tag := range y {
		labels[i] = index[tag]
	}

	lr.classes = classes
	lr.dim = dim
	k := len(classes)

	if k == 1 {
		lr.weights = [][]float64{make([]float64, dim)}
		lr.bias = []float64{0}
		return FitResult{Converged: true}, nil
	}

	p := &problem{x: X, y: labels, k: k, dim: dim, alpha: 1 / (lr.C * float64(len(X)))}
	theta := lr.initialPoint(p.size())
	res := minimize(p, theta, lr.MaxIter, lr.Tolerance)

	lr.weights, lr.bias = p.unpack(theta)
	return res, nil
}

func (lr *LogisticRegression) initialPoint(n int) []float64 {
	theta := make([]float64, n)
	if lr.Seed == 0 {
		return theta
	}
	rng := rand.New(rand.NewSource(lr.Seed))
	for i := range theta {
		theta[i] = (rng.Float64() - 0.5) * 1e-3
	}
	return theta
}

// DecisionFunction returns the raw per-class scores for x.
func (lr *LogisticRegression) DecisionFunction(x SparseVector) ([]float64, error) {
	if lr.weights == nil {
		return nil, ErrNotFitted
	}
	scores := make([]float64, len(lr.classes))
	for c := range lr.classes {
		s := lr.bias[c]
		w := lr.weights[c]
		for i, idx := range x.Indices {
			if idx < lr.dim {
				s += w[idx] * x.Values[i]
			}
		}
		scores[c] = s
	}
	return scores, nil
}

// Predict returns the highest scoring class. Ties go to the class that
// sorts first.
func (lr *LogisticRegression) Predict(x SparseVector) (string, error) {
	scores, err := lr.DecisionFunction(x)
	if err != nil {
		return "", err
	}
	best := 0
	for c := 1; c < len(scores); c++ {
		if scores[c] > scores[best] {
			best = c
		}
	}
	return lr.classes[best], nil
}

// PredictProba returns class probabilities in Classes order.
func (lr *LogisticRegression) PredictProba(x SparseVector) ([]float64, error) {
	scores, err := lr.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	softmax(scores)
	return scores, nil
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// softmax replaces scores with probabilities in place.
func softmax(scores []float64) {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - max)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
}

// problem is the mean cross-entropy plus alpha/2 * ||W||^2, with the
// parameters flattened as k*dim weights followed by k intercepts.
type problem struct {
	x     []SparseVector
	y     []int
	k     int
	dim   int
	alpha float64
}

func (p *problem) size() int {
	return p.k*p.dim + p.k
}

func (p *problem) unpack(theta []float64) ([][]float64, []float64) {
	weights := make([][]float64, p.k)
	for c := 0; c < p.k; c++ {
		weights[c] = make([]float64, p.dim)
		copy(weights[c], theta[c*p.dim:(c+1)*p.dim])
	}
	bias := make([]float64, p.k)
	copy(bias, theta[p.k*p.dim:])
	return weights, bias
}

// eval returns the objective at theta and writes its gradient into grad.
func (p *problem) eval(theta, grad []float64) float64 {
	for i := range grad {
		grad[i] = 0
	}
	n := float64(len(p.x))
	biasOff := p.k * p.dim
	scores := make([]float64, p.k)

	var loss float64
	for i, x := range p.x {
		for c := 0; c < p.k; c++ {
			s := theta[biasOff+c]
			row := theta[c*p.dim : (c+1)*p.dim]
			for j, idx := range x.Indices {
				s += row[idx] * x.Values[j]
			}
			scores[c] = s
		}

		max := math.Inf(-1)
		for _, s := range scores {
			if s > max {
				max = s
			}
		}
		var sum float64
		for _, s := range scores {
			sum += math.Exp(s - max)
		}
		logZ := max + math.Log(sum)
		loss += logZ - scores[p.y[i]]

		for c := 0; c < p.k; c++ {
			diff := math.Exp(scores[c] - logZ)
			if c == p.y[i] {
				diff--
			}
			diff /= n
			grad[biasOff+c] += diff
			row := grad[c*p.dim : (c+1)*p.dim]
			for j, idx := range x.Indices {
				row[idx] += diff * x.Values[j]
			}
		}
	}
	loss /= n

	var reg float64
	for i := 0; i < biasOff; i++ {
		reg += theta[i] * theta[i]
		grad[i] += p.alpha * theta[i]
	}
	return loss + 0.5*p.alpha*reg
}

// minimize runs L-BFGS with a backtracking line search, updating theta in
// place.
func minimize(p *problem, theta []float64, maxIter int, tol float64) FitResult {
	n := len(theta)
	grad := make([]float64, n)
	f := p.eval(theta, grad)

	if maxNorm(grad) <= tol {
		return FitResult{Converged: true, Loss: f}
	}

	var (
		sHist, yHist [][]float64
		rhoHist      []float64
		dir          = make([]float64, n)
		next         = make([]float64, n)
		nextGrad     = make([]float64, n)
		alpha        = make([]float64, historySize)
	)

	for iter := 1; iter <= maxIter; iter++ {
		// two-loop recursion: dir = -H * grad
		copy(dir, grad)
		for i := len(sHist) - 1; i >= 0; i-- {
			alpha[i] = rhoHist[i] * dot(sHist[i], dir)
			axpy(-alpha[i], yHist[i], dir)
		}
		if m := len(sHist); m > 0 {
			scale(dot(sHist[m-1], yHist[m-1])/dot(yHist[m-1], yHist[m-1]), dir)
		} else {
			scale(1/math.Max(1, l2Norm(grad)), dir)
		}
		for i := range sHist {
			beta := rhoHist[i] * dot(yHist[i], dir)
			axpy(alpha[i]-beta, sHist[i], dir)
		}
		scale(-1, dir)

		slope := dot(grad, dir)
		if slope >= 0 {
			// lost descent direction; restart from steepest descent
			sHist, yHist, rhoHist = nil, nil, nil
			copy(dir, grad)
			scale(-1/math.Max(1, l2Norm(grad)), dir)
			slope = dot(grad, dir)
		}

		step := 1.0
		var fNext float64
		accepted := false
		for ls := 0; ls < maxLineSearch; ls++ {
			copy(next, theta)
			axpy(step, dir, next)
			fNext = p.eval(next, nextGrad)
			if fNext <= f+armijo*step*slope {
				accepted = true
				break
			}
			step *= 0.5
		}
		if !accepted {
			return FitResult{Iterations: iter, Converged: false, Loss: f}
		}

		s := make([]float64, n)
		yv := make([]float64, n)
		for i := range s {
			s[i] = next[i] - theta[i]
			yv[i] = nextGrad[i] - grad[i]
		}
		copy(theta, next)
		copy(grad, nextGrad)
		fPrev := f
		f = fNext

		if sy := dot(s, yv); sy > 1e-10 {
			if len(sHist) == historySize {
				sHist, yHist, rhoHist = sHist[1:], yHist[1:], rhoHist[1:]
			}
			sHist = append(sHist, s)
			yHist = append(yHist, yv)
			rhoHist = append(rhoHist, 1/sy)
		}

		if maxNorm(grad) <= tol {
			return FitResult{Iterations: iter, Converged: true, Loss: f}
		}
		if (fPrev-f)/math.Max(math.Max(math.Abs(fPrev), math.Abs(f)), 1) <= ftol {
			return FitResult{Iterations: iter, Converged: true, Loss: f}
		}
	}

	return FitResult{Iterations: maxIter, Converged: false, Loss: f}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func axpy(a float64, x, y []float64) {
	for i := range x {
		y[i] += a * x[i]
	}
}

func scale(a float64, x []float64) {
	for i := range x {
		x[i] *= a
	}
}

func l2Norm(x []float64) float64 {
	return math.Sqrt(dot(x, x))
}

func maxNorm(x []float64) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
