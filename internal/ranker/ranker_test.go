package ranker

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dilanka-heshan/Explore-Sri-Lanka/internal/config"
)

func newTestRanker(t *testing.T, dim int) *Ranker {
	t.Helper()
	r, err := New(dim, config.Ranker{HiddenDim: 8})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func makeEmbed(dim int, fill float64) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestScoreBounds(t *testing.T) {
	r := newTestRanker(t, 4)

	inputs := [][]float64{
		makeEmbed(4, 0.5),
		makeEmbed(4, -3.0),
		makeEmbed(4, 100.0),
	}
	for _, in := range inputs {
		score, err := r.Score(in, in, in)
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if score < 0 || score > 1 {
			t.Errorf("score %v outside [0,1]", score)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	r1 := newTestRanker(t, 4)
	r2 := newTestRanker(t, 4)

	q := makeEmbed(4, 0.1)
	c := makeEmbed(4, 0.2)
	p := makeEmbed(4, 0.3)

	s1, err1 := r1.Score(q, c, p)
	s2, err2 := r2.Score(q, c, p)
	if err1 != nil || err2 != nil {
		t.Fatalf("Score errors: %v, %v", err1, err2)
	}
	if s1 != s2 {
		t.Errorf("random-init ranker not deterministic: %v vs %v", s1, s2)
	}
}

func TestScoreDimensionMismatch(t *testing.T) {
	r := newTestRanker(t, 4)
	if _, err := r.Score(makeEmbed(4, 1), makeEmbed(4, 1), makeEmbed(3, 1)); err == nil {
		t.Fatal("expected error for mismatched place embedding")
	}
}

func TestPEARScoreFusion(t *testing.T) {
	r := newTestRanker(t, 4)

	got := r.PEARScore(0.8, 0.6)
	want := 0.7*0.8 + 0.3*0.6
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("PEARScore = %v, want %v", got, want)
	}

	if got := r.PEARScore(2.0, 2.0); got != 1.0 {
		t.Errorf("PEARScore not clipped high: %v", got)
	}
	if got := r.PEARScore(-1.0, -1.0); got != 0.0 {
		t.Errorf("PEARScore not clipped low: %v", got)
	}
}

func TestPEARScoreCustomWeights(t *testing.T) {
	r, err := New(4, config.Ranker{HiddenDim: 8, NeuralWeight: 0.5, SimilarityWeight: 0.5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got := r.PEARScore(0.4, 0.8)
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("PEARScore = %v, want 0.6", got)
	}
}

func TestLoadWeights(t *testing.T) {
	dim := 2
	hidden := 4
	wf := weightsFile{
		EmbeddingDim: dim,
		HiddenDim:    hidden,
		W1:           identityish(hidden, 3*dim),
		B1:           make([]float64, hidden),
		W2:           identityish(hidden/2, hidden),
		B2:           make([]float64, hidden/2),
		W3:           []float64{1, 1},
		B3:           0.5,
	}
	path := writeWeights(t, wf)

	r, err := New(dim, config.Ranker{WeightsPath: path, HiddenDim: hidden})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !r.Pretrained() {
		t.Fatal("expected pretrained ranker")
	}

	// All-zero input passes only the biases through: sigmoid(0.5).
	zero := makeEmbed(dim, 0)
	score, err := r.Score(zero, zero, zero)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	want := 1.0 / (1.0 + math.Exp(-0.5))
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", score, want)
	}
}

func TestLoadWeightsDimensionMismatch(t *testing.T) {
	wf := weightsFile{EmbeddingDim: 99, HiddenDim: 4}
	path := writeWeights(t, wf)

	r, err := New(2, config.Ranker{WeightsPath: path, HiddenDim: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r.Pretrained() {
		t.Error("mismatched weights must fall back to random initialization")
	}
}

func TestMissingWeightsFileFallsBack(t *testing.T) {
	r, err := New(4, config.Ranker{WeightsPath: "does/not/exist.json", HiddenDim: 8})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if r.Pretrained() {
		t.Error("missing weights file must not report pretrained")
	}
	if _, err := r.Score(makeEmbed(4, 0.1), makeEmbed(4, 0.1), makeEmbed(4, 0.1)); err != nil {
		t.Errorf("Score failed after fallback: %v", err)
	}
}

func identityish(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func writeWeights(t *testing.T, wf weightsFile) string {
	t.Helper()
	raw, err := json.Marshal(wf)
	if err != nil {
		t.Fatalf("marshal weights: %v", err)
	}
	path := filepath.Join(t.TempDir(), "weights.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return path
}
