package metrics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestGenerateClassificationReportPerfect(t *testing.T) {
	labels := []int{0, 1, 0, 1, 1, 0}
	report, err := GenerateClassificationReport(labels, labels)
	if err != nil {
		t.Fatalf("GenerateClassificationReport() error = %v", err)
	}

	if report.Accuracy != 1.0 {
		t.Errorf("Accuracy = %v, want 1.0", report.Accuracy)
	}
	for i, m := range report.PerClass {
		if m.Precision != 1.0 || m.Recall != 1.0 || m.F1 != 1.0 {
			t.Errorf("PerClass[%d] = %+v, want all ones", i, m)
		}
	}
	if report.Macro.F1 != 1.0 || report.Weighted.F1 != 1.0 {
		t.Errorf("Macro.F1 = %v, Weighted.F1 = %v, want 1.0", report.Macro.F1, report.Weighted.F1)
	}
	if report.Matrix.Matrix[0][1] != 0 || report.Matrix.Matrix[1][0] != 0 {
		t.Errorf("off-diagonal confusion counts = %v, want zero", report.Matrix.Matrix)
	}
}

func TestGenerateClassificationReportMixed(t *testing.T) {
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	predictions := []int{0, 0, 0, 1, 1, 1, 1, 0}

	report, err := GenerateClassificationReport(labels, predictions)
	if err != nil {
		t.Fatalf("GenerateClassificationReport() error = %v", err)
	}

	want := &ClassificationReport{
		Accuracy: 0.75,
		PerClass: []ClassMetrics{
			{Precision: 0.75, Recall: 0.75, F1: 0.75, Support: 4},
			{Precision: 0.75, Recall: 0.75, F1: 0.75, Support: 4},
		},
		Macro:    ClassMetrics{Precision: 0.75, Recall: 0.75, F1: 0.75, Support: 8},
		Weighted: ClassMetrics{Precision: 0.75, Recall: 0.75, F1: 0.75, Support: 8},
		Matrix: ConfusionMatrix{
			Labels: []int{0, 1},
			Matrix: [][]int{{3, 1}, {1, 3}},
		},
	}
	if diff := cmp.Diff(want, report, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateClassificationReportAbsentClass(t *testing.T) {
	// Class 2 appears only in predictions: zero support, zero recall, and
	// no division-by-zero panic.
	labels := []int{0, 0, 1, 1}
	predictions := []int{0, 2, 1, 1}

	report, err := GenerateClassificationReport(labels, predictions)
	if err != nil {
		t.Fatalf("GenerateClassificationReport() error = %v", err)
	}

	if got := len(report.PerClass); got != 3 {
		t.Fatalf("len(PerClass) = %d, want 3", got)
	}
	ghost := report.PerClass[2]
	if ghost.Support != 0 || ghost.Recall != 0 || ghost.F1 != 0 {
		t.Errorf("absent class metrics = %+v, want zeros", ghost)
	}
}

func TestGenerateClassificationReportErrors(t *testing.T) {
	if _, err := GenerateClassificationReport(nil, nil); err == nil {
		t.Error("empty labels: expected error")
	}
	if _, err := GenerateClassificationReport([]int{0, 1}, []int{0}); err == nil {
		t.Error("length mismatch: expected error")
	}
}

func TestRounded(t *testing.T) {
	report := &ClassificationReport{
		Accuracy: 2.0 / 3.0,
		PerClass: []ClassMetrics{{Precision: 1.0 / 3.0, Recall: 2.0 / 3.0, F1: 0.4444444, Support: 3}},
	}
	rounded := report.Rounded()

	if rounded.Accuracy != 0.6667 {
		t.Errorf("Accuracy = %v, want 0.6667", rounded.Accuracy)
	}
	if rounded.PerClass[0].Precision != 0.3333 {
		t.Errorf("Precision = %v, want 0.3333", rounded.PerClass[0].Precision)
	}
	// Original must be untouched.
	if math.Abs(report.Accuracy-2.0/3.0) > 1e-15 {
		t.Errorf("Rounded() mutated the original report")
	}
}
