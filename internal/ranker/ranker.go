// Package ranker scores attractions against a user's query and context with
// a small feed-forward network, then fuses the neural score with the vector
// index similarity into the final PEAR score.
package ranker

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/logger"
)

// DefaultHiddenDim is the width of the first hidden layer.
const DefaultHiddenDim = 256

// Default fusion weights for the PEAR score.
const (
	DefaultNeuralWeight     = 0.7
	DefaultSimilarityWeight = 0.3
)

// initSeed makes randomly initialized weights reproducible across runs.
const initSeed = 42

// Ranker runs inference over a three-segment input: the user query
// embedding, the user context embedding and the place embedding,
// concatenated. Architecture is input -> hidden -> hidden/2 -> 1 with ReLU
// activations and a sigmoid output.
type Ranker struct {
	embeddingDim int
	hiddenDim    int

	w1 [][]float64 // hidden x 3*embeddingDim
	b1 []float64
	w2 [][]float64 // hidden/2 x hidden
	b2 []float64
	w3 []float64 // hidden/2
	b3 float64

	neuralWeight     float64
	similarityWeight float64
	pretrained       bool
}

// weightsFile is the on-disk JSON format for trained weights.
type weightsFile struct {
	EmbeddingDim int         `json:"embedding_dim"`
	HiddenDim    int         `json:"hidden_dim"`
	W1           [][]float64 `json:"w1"`
	B1           []float64   `json:"b1"`
	W2           [][]float64 `json:"w2"`
	B2           []float64   `json:"b2"`
	W3           []float64   `json:"w3"`
	B3           float64     `json:"b3"`
}

// New builds a ranker for the given embedding dimensionality. When the
// configured weights file is missing or unreadable the network falls back to
// a deterministic random initialization; ranking still works but carries no
// learned signal, so a warning is logged.
func New(embeddingDim int, cfg config.Ranker) (*Ranker, error) {
	if embeddingDim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim)
	}
	hiddenDim := cfg.HiddenDim
	if hiddenDim <= 0 {
		hiddenDim = DefaultHiddenDim
	}

	r := &Ranker{
		embeddingDim:     embeddingDim,
		hiddenDim:        hiddenDim,
		neuralWeight:     cfg.NeuralWeight,
		similarityWeight: cfg.SimilarityWeight,
	}
	if r.neuralWeight <= 0 && r.similarityWeight <= 0 {
		r.neuralWeight = DefaultNeuralWeight
		r.similarityWeight = DefaultSimilarityWeight
	}

	if cfg.WeightsPath != "" {
		if err := r.loadWeights(cfg.WeightsPath); err != nil {
			logger.Warn("could not load ranker weights, using random initialization",
				"path", cfg.WeightsPath, "error", err)
		} else {
			r.pretrained = true
			logger.Info("loaded pre-trained ranker weights", "path", cfg.WeightsPath)
		}
	}
	if !r.pretrained {
		r.randomInit()
		if cfg.WeightsPath == "" {
			logger.Warn("no ranker weights configured, using random initialization")
		}
	}
	return r, nil
}

// Pretrained reports whether trained weights were loaded.
func (r *Ranker) Pretrained() bool { return r.pretrained }

func (r *Ranker) loadWeights(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read weights file: %w", err)
	}
	var wf weightsFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return fmt.Errorf("invalid weights JSON: %w", err)
	}

	if wf.EmbeddingDim != r.embeddingDim {
		return fmt.Errorf("weights trained for embedding dim %d, ranker expects %d", wf.EmbeddingDim, r.embeddingDim)
	}
	inputDim := 3 * r.embeddingDim
	half := wf.HiddenDim / 2
	if len(wf.W1) != wf.HiddenDim || len(wf.B1) != wf.HiddenDim ||
		len(wf.W2) != half || len(wf.B2) != half || len(wf.W3) != half {
		return fmt.Errorf("weights file has inconsistent layer shapes")
	}
	for i := range wf.W1 {
		if len(wf.W1[i]) != inputDim {
			return fmt.Errorf("w1 row %d has %d columns, want %d", i, len(wf.W1[i]), inputDim)
		}
	}
	for i := range wf.W2 {
		if len(wf.W2[i]) != wf.HiddenDim {
			return fmt.Errorf("w2 row %d has %d columns, want %d", i, len(wf.W2[i]), wf.HiddenDim)
		}
	}

	r.hiddenDim = wf.HiddenDim
	r.w1, r.b1 = wf.W1, wf.B1
	r.w2, r.b2 = wf.W2, wf.B2
	r.w3, r.b3 = wf.W3, wf.B3
	return nil
}

// randomInit fills the network with Xavier-style uniform weights from a
// fixed seed so repeated runs produce identical scores.
func (r *Ranker) randomInit() {
	rng := rand.New(rand.NewSource(initSeed))
	inputDim := 3 * r.embeddingDim
	half := r.hiddenDim / 2

	r.w1 = randomMatrix(rng, r.hiddenDim, inputDim)
	r.b1 = make([]float64, r.hiddenDim)
	r.w2 = randomMatrix(rng, half, r.hiddenDim)
	r.b2 = make([]float64, half)
	r.w3 = randomVector(rng, half, half+1)
	r.b3 = 0
}

func randomMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
	return m
}

func randomVector(rng *rand.Rand, n, fan int) []float64 {
	limit := math.Sqrt(6.0 / float64(fan))
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * limit
	}
	return v
}

// Score runs the network over the concatenated query, context and place
// embeddings and returns a relevance score in [0,1].
func (r *Ranker) Score(queryEmbed, contextEmbed, placeEmbed []float64) (float64, error) {
	if len(queryEmbed) != r.embeddingDim || len(contextEmbed) != r.embeddingDim || len(placeEmbed) != r.embeddingDim {
		return 0, fmt.Errorf("embedding dimensions (%d, %d, %d) do not match ranker dimension %d",
			len(queryEmbed), len(contextEmbed), len(placeEmbed), r.embeddingDim)
	}

	input := make([]float64, 0, 3*r.embeddingDim)
	input = append(input, queryEmbed...)
	input = append(input, contextEmbed...)
	input = append(input, placeEmbed...)

	h1 := make([]float64, len(r.w1))
	for i, row := range r.w1 {
		sum := r.b1[i]
		for j, w := range row {
			sum += w * input[j]
		}
		h1[i] = relu(sum)
	}

	h2 := make([]float64, len(r.w2))
	for i, row := range r.w2 {
		sum := r.b2[i]
		for j, w := range row {
			sum += w * h1[j]
		}
		h2[i] = relu(sum)
	}

	out := r.b3
	for i, w := range r.w3 {
		out += w * h2[i]
	}
	return sigmoid(out), nil
}

// PEARScore fuses the neural score with the index similarity. The result is
// clipped to [0,1].
func (r *Ranker) PEARScore(neuralScore, similarityScore float64) float64 {
	score := r.neuralWeight*neuralScore + r.similarityWeight*similarityScore
	return clip01(score)
}

func relu(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
