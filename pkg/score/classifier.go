package score

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/ChrisMcGann/pepkey/pkg/fdr"
	"github.com/ChrisMcGann/pepkey/pkg/filter"
	"github.com/ChrisMcGann/pepkey/pkg/psm"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Classifier scores feature vectors with the probability of being a target.
type Classifier interface {
	// Features names the columns expected in each input row, in order.
	Features() []string
	// PredictProba returns one probability per row.
	PredictProba(x [][]float64) ([]float64, error)
}

// ErrTooFewTraining is returned when not enough PSMs are available to train.
var ErrTooFewTraining = errors.New("too few PSMs for training")

// LinearClassifier is a logistic model over standardized features.
type LinearClassifier struct {
	FeatureNames []string  `json:"features"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// Features implements Classifier.
func (c *LinearClassifier) Features() []string {
	return c.FeatureNames
}

// Validate checks that all parameter vectors match the feature list.
func (c *LinearClassifier) Validate() error {
	n := len(c.FeatureNames)
	if n == 0 {
		return errors.New("classifier has no features")
	}
	if len(c.Mean) != n || len(c.Scale) != n || len(c.Weights) != n {
		return fmt.Errorf("classifier has %d features but %d means, %d scales and %d weights",
			n, len(c.Mean), len(c.Scale), len(c.Weights))
	}
	return nil
}

// PredictProba implements Classifier.
func (c *LinearClassifier) PredictProba(x [][]float64) ([]float64, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(c.Weights) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(c.Weights))
		}
		out[i] = sigmoid(c.linear(row))
	}
	return out, nil
}

func (c *LinearClassifier) linear(row []float64) float64 {
	z := c.Bias
	for j, v := range row {
		z += c.Weights[j] * standardize(v, c.Mean[j], c.Scale[j])
	}
	return z
}

func standardize(v, mean, scale float64) float64 {
	if scale == 0 {
		return v - mean
	}
	return (v - mean) / scale
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softplus is log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

// LoadLinearClassifier reads a classifier from a JSON file.
func LoadLinearClassifier(path string) (*LinearClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	return ReadLinearClassifier(f)
}

// ReadLinearClassifier decodes a classifier from JSON.
func ReadLinearClassifier(r io.Reader) (*LinearClassifier, error) {
	var c LinearClassifier
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("invalid model file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes the classifier as JSON.
func (c *LinearClassifier) Save(path string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// TrainConfig controls semi-supervised training.
type TrainConfig struct {
	Features     []string
	InitialScore string  // column used to pick confident targets
	TrainFDR     float64 // FDR level for confident targets
	MinTrain     int     // minimum rows per class
	L2           float64 // ridge penalty on the weights
	Seed         int64
	Log          *log.Logger
}

// DefaultTrainConfig returns the training defaults.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Features:     DefaultFeatures,
		InitialScore: "y_hits",
		TrainFDR:     0.1,
		MinTrain:     5000,
		L2:           1e-3,
		Seed:         42,
	}
}

type queryHit struct {
	query, db int
}

// TrainLogistic fits a LinearClassifier separating confident targets from decoys.
// Confident targets are those passing TrainFDR when ranked by InitialScore; both
// classes are subsampled to the same size. Features must already be present on t.
func TrainLogistic(t psm.Table, cfg TrainConfig) (*LinearClassifier, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	pre := t.Clone()
	for i := range pre {
		v, ok := pre[i].Value(cfg.InitialScore)
		if !ok {
			return nil, fmt.Errorf("row %d has no initial score '%s'", i, cfg.InitialScore)
		}
		pre[i].Score = v
	}
	fc := filter.Config{Mode: filter.ModeMultiple}
	pre, err := fc.FilterScore(pre)
	if err != nil {
		return nil, err
	}
	pre = filter.FilterPrecursor(pre)
	_, confident := fdr.CutFDR(pre, cfg.TrainFDR)

	high := make(map[queryHit]bool)
	for i := range confident {
		if !confident[i].Decoy {
			high[queryHit{confident[i].QueryIdx, confident[i].DBIdx}] = true
		}
	}

	var targets, decoys []int
	for i := range t {
		switch {
		case t[i].Decoy:
			decoys = append(decoys, i)
		case high[queryHit{t[i].QueryIdx, t[i].DBIdx}]:
			targets = append(targets, i)
		}
	}

	n := len(targets)
	if len(decoys) < n {
		n = len(decoys)
		logger.Printf("Fewer decoys (%d) than high scoring targets (%d)", len(decoys), len(targets))
	}
	if n < cfg.MinTrain {
		return nil, fmt.Errorf("%w: %d targets and %d decoys, need %d of each",
			ErrTooFewTraining, len(targets), len(decoys), cfg.MinTrain)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rows := make([]int, 0, 2*n)
	labels := make([]float64, 0, 2*n)
	for _, k := range rng.Perm(len(targets))[:n] {
		rows = append(rows, targets[k])
		labels = append(labels, 1)
	}
	for _, k := range rng.Perm(len(decoys))[:n] {
		rows = append(rows, decoys[k])
		labels = append(labels, 0)
	}

	sample := make(psm.Table, len(rows))
	for k, i := range rows {
		sample[k] = t[i]
	}
	x, err := Matrix(sample, cfg.Features)
	if err != nil {
		return nil, err
	}

	clf := &LinearClassifier{
		FeatureNames: append([]string(nil), cfg.Features...),
		Mean:         make([]float64, len(cfg.Features)),
		Scale:        make([]float64, len(cfg.Features)),
	}
	col := make([]float64, len(x))
	for j := range cfg.Features {
		for i := range x {
			col[i] = x[i][j]
		}
		clf.Mean[j], clf.Scale[j] = stat.PopMeanStdDev(col, nil)
	}
	z := make([][]float64, len(x))
	for i := range x {
		z[i] = make([]float64, len(x[i]))
		for j, v := range x[i] {
			z[i][j] = standardize(v, clf.Mean[j], clf.Scale[j])
		}
	}

	logger.Printf("Training on %d targets and %d decoys", n, n)
	params, err := fitLogistic(z, labels, cfg.L2)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	clf.Weights = params[:len(cfg.Features)]
	clf.Bias = params[len(cfg.Features)]
	return clf, nil
}

// fitLogistic minimizes the mean log-loss plus a ridge penalty. The last element of the
// returned vector is the bias.
func fitLogistic(x [][]float64, y []float64, l2 float64) ([]float64, error) {
	m := len(x[0])
	n := float64(len(x))

	linear := func(w []float64, row []float64) float64 {
		z := w[m]
		for j, v := range row {
			z += w[j] * v
		}
		return z
	}

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			loss := 0.0
			for i, row := range x {
				z := linear(w, row)
				loss += softplus(z) - y[i]*z
			}
			penalty := 0.0
			for _, v := range w[:m] {
				penalty += v * v
			}
			return loss/n + 0.5*l2*penalty
		},
		Grad: func(grad, w []float64) {
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range x {
				r := sigmoid(linear(w, row)) - y[i]
				for j, v := range row {
					grad[j] += r * v
				}
				grad[m] += r
			}
			for j := range grad {
				grad[j] /= n
			}
			for j := 0; j < m; j++ {
				grad[j] += l2 * w[j]
			}
		},
	}

	result, err := optimize.Minimize(problem, make([]float64, m+1), nil, nil)
	if result == nil || math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		if err == nil {
			err = errors.New("no finite solution")
		}
		return nil, err
	}
	// a failed line search still reports the best location found
	return result.X, nil
}
