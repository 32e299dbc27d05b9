package classifier

import "gonum.org/v1/gonum/mat"

// PositiveScores returns one ranking score per row for binary ROC
// analysis: the predicted probability of class 1 when the model exposes
// probabilities, otherwise a 0/1 indicator derived from the hard
// predictions.
func PositiveScores(clf Classifier, X mat.Matrix, predicted []int) []float64 {
	scores := make([]float64, len(predicted))
	if pe, ok := clf.(ProbabilityEstimator); ok {
		if col := classIndex(clf.Classes(), 1); col >= 0 {
			if proba, err := pe.PredictProba(X); err == nil {
				for i := range scores {
					scores[i] = proba.At(i, col)
				}
				return scores
			}
		}
	}
	for i, p := range predicted {
		if p == 1 {
			scores[i] = 1
		}
	}
	return scores
}

func classIndex(classes []int, class int) int {
	for i, c := range classes {
		if c == class {
			return i
		}
	}
	return -1
}
