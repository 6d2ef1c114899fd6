package forest

import (
	"math"
)

//eulerMascheroni shows up in the expected path length of an
//unsuccessful binary search tree lookup
const eulerMascheroni = 0.5772156649

type (
	//Node is one split in an isolation tree. A node with no children
	//is a leaf; Size records how many training samples ended there.
	Node struct {
		Feature int     `json:"feature"`
		Split   float64 `json:"split"`
		Size    int     `json:"size"`
		Left    *Node   `json:"left,omitempty"`
		Right   *Node   `json:"right,omitempty"`
	}

	//Forest is a fitted isolation forest. It is read-only after
	//training or loading: concurrent scorers may share one instance
	//without synchronization.
	Forest struct {
		Trees         []*Node `json:"trees"`
		SubsampleSize int     `json:"subsample_size"`
	}
)

//isLeaf checks whether the node terminates a path
func (n *Node) isLeaf() bool {
	return n.Left == nil && n.Right == nil
}

//pathLength walks one isolation tree and returns the (adjusted) depth
//at which the point is isolated
func (n *Node) pathLength(point []float64, depth float64) float64 {
	if n.isLeaf() {
		return depth + averagePathLength(n.Size)
	}
	if point[n.Feature] < n.Split {
		return n.Left.pathLength(point, depth+1)
	}
	return n.Right.pathLength(point, depth+1)
}

//Score returns the anomaly score of a point in [0, 1]. Points which
//isolate quickly score near 1; points buried in the bulk of the
//training data score near or below 0.5.
func (f *Forest) Score(point []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}

	var total float64
	for _, tree := range f.Trees {
		total += tree.pathLength(point, 0)
	}
	mean := total / float64(len(f.Trees))

	norm := averagePathLength(f.SubsampleSize)
	if norm == 0 {
		return 0
	}
	return math.Pow(2, -mean/norm)
}

//ScoreAll scores a matrix of points row by row
func (f *Forest) ScoreAll(points [][]float64) []float64 {
	scores := make([]float64, len(points))
	for i, point := range points {
		scores[i] = f.Score(point)
	}
	return scores
}

//averagePathLength is c(n): the expected path length of an
//unsuccessful search in a binary search tree built over n points
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
}
