package forest

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

//Training defaults mirroring the offline training job
const (
	DefaultTrees     = 100
	DefaultSubsample = 256
)

//Train fits an isolation forest over the row-major feature matrix.
//Training is seeded so a training run is reproducible.
func Train(matrix [][]float64, nTrees, subsample int, seed int64) (*Forest, error) {
	if len(matrix) == 0 {
		return nil, errors.New("cannot train an isolation forest on an empty matrix")
	}
	if nTrees <= 0 {
		nTrees = DefaultTrees
	}
	if subsample <= 0 {
		subsample = DefaultSubsample
	}
	if subsample > len(matrix) {
		subsample = len(matrix)
	}

	rng := rand.New(rand.NewSource(seed))
	maxDepth := int(math.Ceil(math.Log2(float64(subsample)))) + 1

	forest := &Forest{
		Trees:         make([]*Node, nTrees),
		SubsampleSize: subsample,
	}

	for i := 0; i < nTrees; i++ {
		sample := make([][]float64, subsample)
		for j, idx := range rng.Perm(len(matrix))[:subsample] {
			sample[j] = matrix[idx]
		}
		forest.Trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	return forest, nil
}

//buildTree recursively isolates the sample with random axis-aligned
//splits until the points separate or the depth budget runs out
func buildTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *Node {
	if len(sample) <= 1 || depth >= maxDepth {
		return &Node{Size: len(sample)}
	}

	feature, min, max, ok := pickSplitFeature(sample, rng)
	if !ok {
		// every remaining column is constant; nothing left to split on
		return &Node{Size: len(sample)}
	}

	split := min + rng.Float64()*(max-min)

	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &Node{
		Feature: feature,
		Split:   split,
		Size:    len(sample),
		Left:    buildTree(left, depth+1, maxDepth, rng),
		Right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

//pickSplitFeature chooses a random feature which still varies within
//the sample, returning its value range
func pickSplitFeature(sample [][]float64, rng *rand.Rand) (int, float64, float64, bool) {
	dims := len(sample[0])
	for _, feature := range rng.Perm(dims) {
		min, max := sample[0][feature], sample[0][feature]
		for _, row := range sample[1:] {
			if row[feature] < min {
				min = row[feature]
			}
			if row[feature] > max {
				max = row[feature]
			}
		}
		if max > min {
			return feature, min, max, true
		}
	}
	return 0, 0, 0, false
}
