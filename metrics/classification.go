// Package metrics implements the evaluation math of the pipeline:
// multiclass classification reports and binary ranking AUC.
package metrics

import (
	"math"
	"sort"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// ClassMetrics holds the per-class slice of a classification report.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ConfusionMatrix counts predictions per (true, predicted) label pair.
// Matrix[i][j] is the number of samples with true label Labels[i]
// predicted as Labels[j].
type ConfusionMatrix struct {
	Labels []int   `json:"labels"`
	Matrix [][]int `json:"matrix"`
}

// ClassificationReport is the full derived evaluation of one prediction
// set. It is recomputed on every evaluation and never persisted on its
// own. Values are unrounded; callers apply Round4 at the boundary where
// stable comparison matters.
type ClassificationReport struct {
	Accuracy float64         `json:"accuracy"`
	PerClass []ClassMetrics  `json:"per_class"`
	Macro    ClassMetrics    `json:"macro"`
	Weighted ClassMetrics    `json:"weighted"`
	Matrix   ConfusionMatrix `json:"confusion_matrix"`
}

// GenerateClassificationReport builds the report over the sorted union of
// labels appearing in either input. Empty denominators yield zero for the
// affected metric, never an error.
func GenerateClassificationReport(labels, predictions []int) (*ClassificationReport, error) {
	if len(labels) == 0 {
		return nil, errors.NewValueError("GenerateClassificationReport", "empty label set")
	}
	if len(labels) != len(predictions) {
		return nil, errors.NewDimensionError("GenerateClassificationReport", len(labels), len(predictions), 0)
	}

	classSet := make(map[int]bool)
	for _, l := range labels {
		classSet[l] = true
	}
	for _, p := range predictions {
		classSet[p] = true
	}
	classes := make([]int, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	matrix := make([][]int, len(classes))
	for i := range matrix {
		matrix[i] = make([]int, len(classes))
	}
	correct := 0
	for i := range labels {
		matrix[index[labels[i]]][index[predictions[i]]]++
		if labels[i] == predictions[i] {
			correct++
		}
	}

	report := &ClassificationReport{
		Accuracy: float64(correct) / float64(len(labels)),
		PerClass: make([]ClassMetrics, len(classes)),
		Matrix:   ConfusionMatrix{Labels: classes, Matrix: matrix},
	}

	totalSupport := 0
	for i := range classes {
		tp := matrix[i][i]
		predicted, actual := 0, 0
		for k := range classes {
			predicted += matrix[k][i]
			actual += matrix[i][k]
		}

		m := ClassMetrics{Support: actual}
		m.Precision = safeRatio(float64(tp), float64(predicted))
		m.Recall = safeRatio(float64(tp), float64(actual))
		m.F1 = safeRatio(2*m.Precision*m.Recall, m.Precision+m.Recall)
		report.PerClass[i] = m

		report.Macro.Precision += m.Precision
		report.Macro.Recall += m.Recall
		report.Macro.F1 += m.F1
		report.Weighted.Precision += m.Precision * float64(actual)
		report.Weighted.Recall += m.Recall * float64(actual)
		report.Weighted.F1 += m.F1 * float64(actual)
		totalSupport += actual
	}

	n := float64(len(classes))
	report.Macro.Precision /= n
	report.Macro.Recall /= n
	report.Macro.F1 /= n
	report.Macro.Support = totalSupport
	report.Weighted.Precision /= float64(totalSupport)
	report.Weighted.Recall /= float64(totalSupport)
	report.Weighted.F1 /= float64(totalSupport)
	report.Weighted.Support = totalSupport

	return report, nil
}

// Rounded returns a copy of the report with every float rounded to four
// decimal places for stable comparison and persistence.
func (r *ClassificationReport) Rounded() *ClassificationReport {
	out := *r
	out.Accuracy = Round4(r.Accuracy)
	out.PerClass = make([]ClassMetrics, len(r.PerClass))
	for i, m := range r.PerClass {
		out.PerClass[i] = roundClass(m)
	}
	out.Macro = roundClass(r.Macro)
	out.Weighted = roundClass(r.Weighted)
	return &out
}

func roundClass(m ClassMetrics) ClassMetrics {
	m.Precision = Round4(m.Precision)
	m.Recall = Round4(m.Recall)
	m.F1 = Round4(m.F1)
	return m
}

// safeRatio returns num/denom, or zero when the denominator is zero.
func safeRatio(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom
}

// Round4 rounds to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
