package metrics

import (
	"log/slog"

	"github.com/urbanrisk/crimeml/pkg/errors"
	"github.com/urbanrisk/crimeml/pkg/log"
)

// AUC computes the binary area under the ROC curve via the Mann-Whitney U
// statistic: every (positive, negative) score pair contributes a win when
// the positive scores higher and half a win on ties.
//
// Labels must be 0 or 1; scores are the positive-class scores. When
// either class is absent the metric is undefined and 0.0 is returned
// with a logged warning instead of an error.
//
// The pairwise scan is O(P*N). That is fine for the dataset sizes this
// pipeline targets; very large evaluation sets would want the rank-based
// O(n log n) formulation instead.
func AUC(labels []int, scores []float64) (float64, error) {
	if len(labels) == 0 {
		return 0, errors.NewValueError("AUC", "empty label set")
	}
	if len(labels) != len(scores) {
		return 0, errors.NewDimensionError("AUC", len(labels), len(scores), 0)
	}

	var positives, negatives []float64
	for i, l := range labels {
		if l == 1 {
			positives = append(positives, scores[i])
		} else {
			negatives = append(negatives, scores[i])
		}
	}

	if len(positives) == 0 || len(negatives) == 0 {
		warning := errors.NewUndefinedMetricWarning("auc", "only one class present", 0.0)
		slog.Warn(warning.Error(), log.ComponentKey, "metrics")
		return 0.0, nil
	}

	wins := 0.0
	for _, p := range positives {
		for _, n := range negatives {
			switch {
			case p > n:
				wins += 1.0
			case p == n:
				wins += 0.5
			}
		}
	}
	return wins / (float64(len(positives)) * float64(len(negatives))), nil
}
