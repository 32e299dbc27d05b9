package trainer

import (
	"math/rand/v2"
	"sort"
)

// Fold holds the train/test index partition for a single CV round.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold partitions sample indices into k shuffled folds. Fold sizes differ
// by at most one sample; every index appears in exactly one test set.
type KFold struct {
	NSplits int
	Seed    int64
}

// NewKFold creates a k-fold splitter. Splits below 2 fall back to the
// trainer default.
func NewKFold(nSplits int, seed int64) *KFold {
	if nSplits < 2 {
		nSplits = defaultCVFolds
	}
	return &KFold{NSplits: nSplits, Seed: seed}
}

// Split generates the train/test index pairs for nSamples rows. When
// nSamples is smaller than the fold count the splitter degrades to
// leave-one-out over the available rows.
func (kf *KFold) Split(nSamples int) []Fold {
	splits := kf.NSplits
	if splits > nSamples {
		splits = nSamples
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	folds := make([]Fold, splits)
	foldSize := nSamples / splits
	remainder := nSamples % splits

	current := 0
	for i := 0; i < splits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		test := make([]int, testSize)
		copy(test, indices[current:current+testSize])

		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds
}

// StratifiedKFold partitions sample indices into k shuffled folds while
// keeping the per-class proportions of y roughly constant across folds.
type StratifiedKFold struct {
	NSplits int
	Seed    int64
}

// NewStratifiedKFold creates a stratified splitter. Splits below 2 fall
// back to the trainer default.
func NewStratifiedKFold(nSplits int, seed int64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = defaultCVFolds
	}
	return &StratifiedKFold{NSplits: nSplits, Seed: seed}
}

// Split generates the train/test index pairs for the label column y.
// Indices of each class are shuffled independently and dealt round-robin
// into the folds, so a class with fewer samples than folds simply leaves
// some test sets without it.
func (skf *StratifiedKFold) Split(y []int) []Fold {
	nSamples := len(y)
	splits := skf.NSplits
	if splits > nSamples {
		splits = nSamples
	}
	if splits < 1 {
		return nil
	}

	byClass := make(map[int][]int)
	classes := make([]int, 0)
	for i, label := range y {
		if _, ok := byClass[label]; !ok {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}
	sort.Ints(classes)

	r := rand.New(rand.NewPCG(uint64(skf.Seed), uint64(skf.Seed)))
	testSets := make([][]int, splits)
	next := 0
	for _, c := range classes {
		indices := byClass[c]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for _, idx := range indices {
			testSets[next%splits] = append(testSets[next%splits], idx)
			next++
		}
	}

	folds := make([]Fold, splits)
	for i := range folds {
		test := testSets[i]
		sort.Ints(test)
		inTest := make(map[int]bool, len(test))
		for _, idx := range test {
			inTest[idx] = true
		}
		train := make([]int, 0, nSamples-len(test))
		for idx := 0; idx < nSamples; idx++ {
			if !inTest[idx] {
				train = append(train, idx)
			}
		}
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
	}
	return folds
}
