package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
)

// fixtureArtifacts churns month-to-month contracts: a single tree splits on
// the Contract code.
func fixtureArtifacts(t *testing.T) service.Artifacts {
	t.Helper()

	values := map[string][]string{}
	for _, col := range feature.ChurnSchema.CategoricalNames() {
		values[col] = []string{"No", "Yes"}
	}
	values[feature.ColContract] = []string{"Month-to-month", "One year", "Two year"}
	values[feature.ColChurn] = []string{"No", "Yes"}
	reg := feature.FitRegistry(values)

	names := feature.ChurnSchema.Names()
	order, err := feature.CaptureOrder(names)
	require.NoError(t, err)

	mean := make([]float64, len(names))
	std := make([]float64, len(names))
	for i := range std {
		std[i] = 1
	}
	scaler, err := feature.NewScaler(mean, std)
	require.NoError(t, err)

	contract := 0
	for i, n := range names {
		if n == feature.ColContract {
			contract = i
		}
	}
	tree := ensemble.Tree{Nodes: []ensemble.Node{
		{Feature: contract, Threshold: 0.5, Left: 1, Right: 2},
		{Leaf: true, Value: 1.5},
		{Leaf: true, Value: -1.5},
	}}
	clf := &ensemble.VotingClassifier{NumFeatures: len(names)}
	for _, p := range []ensemble.Params{ensemble.DepthWiseParams(42), ensemble.LeafWiseParams(42)} {
		clf.Members = append(clf.Members, &ensemble.Booster{Params: p, NumFeatures: len(names), Trees: []ensemble.Tree{tree}})
	}

	return service.Artifacts{
		Schema:     feature.ChurnSchema,
		Registry:   reg,
		Order:      order,
		Scaler:     scaler,
		Classifier: clf,
	}
}

func customer(contract string) feature.Record {
	rec := feature.Record{}
	for _, col := range feature.ChurnSchema.Columns() {
		if col.Kind == feature.Categorical {
			rec[col.Name] = feature.Text("No")
		} else {
			rec[col.Name] = feature.Number(1)
		}
	}
	rec[feature.ColContract] = feature.Text(contract)
	return rec
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	a := fixtureArtifacts(t)

	meta := NewMetadata(training.Result{TrainRows: 10, TestRows: 3}, training.DefaultConfig())
	require.NoError(t, store.Save(a, &meta))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, meta.RunID.String(), loaded.Version)
	assert.True(t, a.Order.Equal(loaded.Order))
	assert.Equal(t, a.Scaler.Mean(), loaded.Scaler.Mean())

	original, err := service.NewPredictor(a)
	require.NoError(t, err)
	restored, err := service.NewPredictor(loaded)
	require.NoError(t, err)

	for _, contract := range []string{"Month-to-month", "One year", "Two year", "Decade"} {
		want, err := original.PredictOne(customer(contract))
		require.NoError(t, err)
		got, err := restored.PredictOne(customer(contract))
		require.NoError(t, err)
		assert.Equal(t, want, got, contract)
	}

	churn, err := restored.PredictOne(customer("Month-to-month"))
	require.NoError(t, err)
	assert.True(t, churn.IsChurn())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temporary files are renamed away")
	}

	got, err := store.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, 10, got.TrainRows)
	assert.Equal(t, uint64(42), got.Seed)
}

func TestStore_LoadWithoutReport(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(fixtureArtifacts(t), nil))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Version)

	_, err = store.LoadMetadata()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStore_LoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		damage  func(t *testing.T, dir string)
		wantMsg string
	}{
		{
			name:    "missing model",
			damage:  func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, ModelFile))) },
			wantMsg: ModelFile,
		},
		{
			name:    "missing encoders",
			damage:  func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, EncodersFile))) },
			wantMsg: EncodersFile,
		},
		{
			name:    "missing scaler",
			damage:  func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, ScalerFile))) },
			wantMsg: ScalerFile,
		},
		{
			name:    "missing feature order",
			damage:  func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, OrderFile))) },
			wantMsg: OrderFile,
		},
		{
			name: "corrupt model",
			damage: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("not gob"), 0o644))
			},
			wantMsg: ModelFile,
		},
		{
			name: "scaler std negative",
			damage: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ScalerFile), []byte(`{"mean":[0],"std":[-1]}`), 0o644))
			},
			wantMsg: ScalerFile,
		},
		{
			name: "order disagrees with scaler",
			damage: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, OrderFile), []byte(`["gender","tenure"]`), 0o644))
			},
			wantMsg: "invalid model artifacts",
		},
		{
			name: "corrupt report",
			damage: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, ReportFile), []byte("{"), 0o644))
			},
			wantMsg: ReportFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewStore(dir)
			meta := NewMetadata(training.Result{}, training.DefaultConfig())
			require.NoError(t, store.Save(fixtureArtifacts(t), &meta))

			tt.damage(t, dir)
			_, err := store.Load()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantMsg), err.Error())
		})
	}
}

func TestStore_SaveRejectsInvalidArtifacts(t *testing.T) {
	a := fixtureArtifacts(t)
	a.Scaler = nil
	err := NewStore(t.TempDir()).Save(a, nil)
	assert.ErrorIs(t, err, service.ErrArtifactInvalid)
}
