package forest

import (
	"github.com/pkg/errors"
	"github.com/soteria-soc/soteria/util"
)

//Scaler standardizes features to zero mean and unit variance so
//large-magnitude columns (request counts, intervals) cannot drown out
//the ratio features
type Scaler struct {
	Mean   []float64 `json:"mean"`
	StdDev []float64 `json:"std"`
}

//FitScaler computes per-column statistics over the training matrix
func FitScaler(matrix [][]float64) (*Scaler, error) {
	if len(matrix) == 0 {
		return nil, errors.New("cannot fit a scaler on an empty matrix")
	}

	dims := len(matrix[0])
	scaler := &Scaler{
		Mean:   make([]float64, dims),
		StdDev: make([]float64, dims),
	}

	column := make([]float64, len(matrix))
	for j := 0; j < dims; j++ {
		for i, row := range matrix {
			column[i] = row[j]
		}
		scaler.Mean[j] = util.Mean(column)
		scaler.StdDev[j] = util.StdDev(column)
	}
	return scaler, nil
}

//Transform standardizes a single vector. Constant training columns
//(stddev 0) pass through as zero deviation.
func (s *Scaler) Transform(point []float64) []float64 {
	out := make([]float64, len(point))
	for j, v := range point {
		if j >= len(s.Mean) {
			break
		}
		if s.StdDev[j] > 0 {
			out[j] = (v - s.Mean[j]) / s.StdDev[j]
		}
	}
	return out
}

//TransformAll standardizes a matrix row by row
func (s *Scaler) TransformAll(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		out[i] = s.Transform(row)
	}
	return out
}
