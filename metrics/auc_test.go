package metrics

import (
	"math"
	"testing"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		labels  []int
		scores  []float64
		want    float64
		wantErr bool
	}{
		{
			name:   "perfect ranking",
			labels: []int{0, 0, 0, 1, 1, 1},
			scores: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "inverted ranking",
			labels: []int{0, 0, 0, 1, 1, 1},
			scores: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:   0.0,
		},
		{
			name:   "all ties",
			labels: []int{0, 1, 0, 1},
			scores: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
		{
			name:   "typical case",
			labels: []int{0, 0, 1, 1},
			scores: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.75,
		},
		{
			name:   "only positives present",
			labels: []int{1, 1, 1, 1},
			scores: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.0,
		},
		{
			name:   "only negatives present",
			labels: []int{0, 0, 0, 0},
			scores: []float64{0.1, 0.4, 0.35, 0.8},
			want:   0.0,
		},
		{
			name:    "length mismatch",
			labels:  []int{0, 1},
			scores:  []float64{0.5},
			wantErr: true,
		},
		{
			name:    "empty inputs",
			labels:  []int{},
			scores:  []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.labels, tt.scores)
			if (err != nil) != tt.wantErr {
				t.Errorf("AUC() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}
