package training

import (
	"fmt"
	"strings"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
)

// ClassMetrics holds per-class precision, recall, F1 and support.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a classification report over a held-out set.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// Evaluate scores every row of test and builds the report. classNames names
// classes 0 and 1.
func Evaluate(clf *ensemble.VotingClassifier, test EncodedDataset, classNames [2]string) (Report, error) {
	if test.Len() == 0 {
		return Report{}, fmt.Errorf("no rows to evaluate")
	}

	// confusion[actual][predicted]
	var confusion [2][2]int
	for i, r := range test.Rows {
		label, err := clf.Predict(r.X)
		if err != nil {
			return Report{}, fmt.Errorf("row %d: %w", i, err)
		}
		confusion[r.Y][label]++
	}

	n := test.Len()
	rep := Report{Support: n, Classes: make([]ClassMetrics, 2)}
	rep.Accuracy = float64(confusion[0][0]+confusion[1][1]) / float64(n)

	for c := 0; c < 2; c++ {
		tp := confusion[c][c]
		predicted := confusion[0][c] + confusion[1][c]
		support := confusion[c][0] + confusion[c][1]

		m := ClassMetrics{Label: classNames[c], Support: support}
		m.Precision = ratio(tp, predicted)
		m.Recall = ratio(tp, support)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes[c] = m

		w := float64(support) / float64(n)
		rep.MacroAvg.Precision += m.Precision / 2
		rep.MacroAvg.Recall += m.Recall / 2
		rep.MacroAvg.F1 += m.F1 / 2
		rep.WeightedAvg.Precision += m.Precision * w
		rep.WeightedAvg.Recall += m.Recall * w
		rep.WeightedAvg.F1 += m.F1 * w
	}
	rep.MacroAvg.Label, rep.MacroAvg.Support = "macro avg", n
	rep.WeightedAvg.Label, rep.WeightedAvg.Support = "weighted avg", n
	return rep, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as a fixed-width table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		writeMetrics(&b, m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Support)
	writeMetrics(&b, r.MacroAvg)
	writeMetrics(&b, r.WeightedAvg)
	return b.String()
}

func writeMetrics(b *strings.Builder, m ClassMetrics) {
	fmt.Fprintf(b, "%14s %10.2f %10.2f %10.2f %10d\n", m.Label, m.Precision, m.Recall, m.F1, m.Support)
}
