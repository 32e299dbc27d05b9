package trainer

import (
	"sort"
	"testing"
)

func TestKFoldSplit(t *testing.T) {
	tests := []struct {
		name     string
		nSplits  int
		nSamples int
	}{
		{"even split", 5, 100},
		{"uneven split", 3, 10},
		{"more folds than samples", 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds := NewKFold(tt.nSplits, 42).Split(tt.nSamples)

			wantFolds := tt.nSplits
			if wantFolds > tt.nSamples {
				wantFolds = tt.nSamples
			}
			if len(folds) != wantFolds {
				t.Fatalf("len(folds) = %d, want %d", len(folds), wantFolds)
			}

			// Every index appears in exactly one test set, fold sizes differ
			// by at most one, and train/test never overlap.
			var allTest []int
			minSize, maxSize := tt.nSamples, 0
			for _, fold := range folds {
				if len(fold.TestIndices) < minSize {
					minSize = len(fold.TestIndices)
				}
				if len(fold.TestIndices) > maxSize {
					maxSize = len(fold.TestIndices)
				}
				if len(fold.TrainIndices)+len(fold.TestIndices) != tt.nSamples {
					t.Errorf("fold sizes sum to %d, want %d",
						len(fold.TrainIndices)+len(fold.TestIndices), tt.nSamples)
				}
				inTest := make(map[int]bool, len(fold.TestIndices))
				for _, idx := range fold.TestIndices {
					inTest[idx] = true
				}
				for _, idx := range fold.TrainIndices {
					if inTest[idx] {
						t.Errorf("index %d in both train and test", idx)
					}
				}
				allTest = append(allTest, fold.TestIndices...)
			}
			if maxSize-minSize > 1 {
				t.Errorf("fold sizes range [%d, %d], want difference <= 1", minSize, maxSize)
			}

			sort.Ints(allTest)
			if len(allTest) != tt.nSamples {
				t.Fatalf("test indices cover %d samples, want %d", len(allTest), tt.nSamples)
			}
			for i, idx := range allTest {
				if idx != i {
					t.Fatalf("test indices = %v, want permutation of 0..%d", allTest, tt.nSamples-1)
				}
			}
		})
	}
}

func TestStratifiedKFoldSplit(t *testing.T) {
	// 12 samples of class 0, 6 of class 1, interleaved.
	y := make([]int, 18)
	for i := range y {
		if i%3 == 2 {
			y[i] = 1
		}
	}

	folds := NewStratifiedKFold(3, 42).Split(y)
	if len(folds) != 3 {
		t.Fatalf("len(folds) = %d, want 3", len(folds))
	}

	var allTest []int
	for i, fold := range folds {
		class1 := 0
		for _, idx := range fold.TestIndices {
			if y[idx] == 1 {
				class1++
			}
		}
		// 6 class-1 samples over 3 folds: exactly 2 each.
		if class1 != 2 {
			t.Errorf("fold %d has %d class-1 test samples, want 2", i, class1)
		}
		if len(fold.TrainIndices)+len(fold.TestIndices) != len(y) {
			t.Errorf("fold %d sizes sum to %d, want %d",
				i, len(fold.TrainIndices)+len(fold.TestIndices), len(y))
		}
		inTest := make(map[int]bool, len(fold.TestIndices))
		for _, idx := range fold.TestIndices {
			inTest[idx] = true
		}
		for _, idx := range fold.TrainIndices {
			if inTest[idx] {
				t.Errorf("fold %d: index %d in both train and test", i, idx)
			}
		}
		allTest = append(allTest, fold.TestIndices...)
	}

	sort.Ints(allTest)
	if len(allTest) != len(y) {
		t.Fatalf("test indices cover %d samples, want %d", len(allTest), len(y))
	}
	for i, idx := range allTest {
		if idx != i {
			t.Fatalf("test indices = %v, want permutation of 0..%d", allTest, len(y)-1)
		}
	}
}

func TestStratifiedKFoldDeterministic(t *testing.T) {
	y := []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1}
	a := NewStratifiedKFold(4, 7).Split(y)
	b := NewStratifiedKFold(4, 7).Split(y)
	for i := range a {
		if len(a[i].TestIndices) != len(b[i].TestIndices) {
			t.Fatalf("fold %d sizes differ", i)
		}
		for j := range a[i].TestIndices {
			if a[i].TestIndices[j] != b[i].TestIndices[j] {
				t.Fatalf("fold %d not deterministic for the same seed", i)
			}
		}
	}
}

func TestKFoldDeterministic(t *testing.T) {
	a := NewKFold(4, 7).Split(20)
	b := NewKFold(4, 7).Split(20)
	for i := range a {
		if len(a[i].TestIndices) != len(b[i].TestIndices) {
			t.Fatalf("fold %d sizes differ", i)
		}
		for j := range a[i].TestIndices {
			if a[i].TestIndices[j] != b[i].TestIndices[j] {
				t.Fatalf("fold %d not deterministic for the same seed", i)
			}
		}
	}
}
