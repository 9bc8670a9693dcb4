package training

import (
	"fmt"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
)

// Row is one encoded example: the feature vector in feature order and its
// binary label.
type Row struct {
	X []float64
	Y int
}

// EncodedDataset is a numeric dataset whose vectors follow Order.
type EncodedDataset struct {
	Order feature.FeatureOrder
	Rows  []Row
}

// Len returns the number of rows.
func (d EncodedDataset) Len() int { return len(d.Rows) }

// Matrix splits the dataset into a feature matrix and a label vector.
func (d EncodedDataset) Matrix() ([][]float64, []int) {
	x := make([][]float64, len(d.Rows))
	y := make([]int, len(d.Rows))
	for i, r := range d.Rows {
		x[i] = r.X
		y[i] = r.Y
	}
	return x, y
}

// ClassCounts returns the number of rows labelled 0 and 1.
func (d EncodedDataset) ClassCounts() [2]int {
	var c [2]int
	for _, r := range d.Rows {
		c[r.Y]++
	}
	return c
}

// EncodeStage fits one encoder per categorical column and for the target,
// encodes every row and captures the feature order. The target must have
// exactly two classes, one of them positiveClass, which receives code 1.
func EncodeStage(t RawTable, schema feature.Schema, positiveClass string) (EncodedDataset, *feature.Registry, feature.FeatureOrder, error) {
	if len(t.Rows) == 0 {
		return EncodedDataset{}, nil, feature.FeatureOrder{}, fmt.Errorf("no rows to encode")
	}
	targetIdx, ok := t.ColumnIndex(schema.Target())
	if !ok {
		return EncodedDataset{}, nil, feature.FeatureOrder{}, fmt.Errorf("target column %q not found", schema.Target())
	}

	encoders := make(map[string]*feature.Encoder)
	for _, name := range schema.CategoricalNames() {
		i, ok := t.ColumnIndex(name)
		if !ok {
			return EncodedDataset{}, nil, feature.FeatureOrder{}, fmt.Errorf("column %q not found", name)
		}
		col := make([]string, len(t.Rows))
		for r, row := range t.Rows {
			col[r] = row[i]
		}
		encoders[name] = feature.FitEncoder(col)
	}

	target, err := targetEncoder(t, targetIdx, schema.Target(), positiveClass)
	if err != nil {
		return EncodedDataset{}, nil, feature.FeatureOrder{}, err
	}
	encoders[schema.Target()] = target
	registry := feature.NewRegistry(encoders)

	order, err := feature.CaptureOrder(schema.Names())
	if err != nil {
		return EncodedDataset{}, nil, feature.FeatureOrder{}, err
	}

	ds := EncodedDataset{Order: order, Rows: make([]Row, 0, len(t.Rows))}
	for n, row := range t.Rows {
		rec := make(feature.Record, len(t.Header))
		for i, name := range t.Header {
			rec[name] = feature.Text(row[i])
		}
		encoded, _, err := registry.EncodeRecord(schema, rec)
		if err != nil {
			return EncodedDataset{}, nil, feature.FeatureOrder{}, fmt.Errorf("row %d: %w", n+1, err)
		}
		vec, err := order.Apply(encoded)
		if err != nil {
			return EncodedDataset{}, nil, feature.FeatureOrder{}, fmt.Errorf("row %d: %w", n+1, err)
		}
		ds.Rows = append(ds.Rows, Row{X: vec, Y: target.Transform(row[targetIdx]).Code()})
	}
	return ds, registry, order, nil
}

// targetEncoder checks that the target column holds exactly two classes,
// one of them positiveClass, and maps positiveClass to 1.
func targetEncoder(t RawTable, targetIdx int, name, positiveClass string) (*feature.Encoder, error) {
	col := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		col[r] = row[targetIdx]
	}
	classes := feature.FitEncoder(col).Categories()
	if len(classes) != 2 {
		return nil, fmt.Errorf("target %q has classes %v, want exactly 2", name, classes)
	}
	switch positiveClass {
	case classes[0]:
		return feature.NewBinaryEncoder(classes[1], classes[0])
	case classes[1]:
		return feature.NewBinaryEncoder(classes[0], classes[1])
	default:
		return nil, fmt.Errorf("positive class %q not found in target %q, classes are %v", positiveClass, name, classes)
	}
}
