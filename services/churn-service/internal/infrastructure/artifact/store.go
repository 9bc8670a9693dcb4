// Package artifact persists and loads the fitted model artifacts: the
// classifier, encoder registry, scaler state and feature order.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bib/services/churn-service/internal/domain/ensemble"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
)

// File names inside an artifact directory.
const (
	ModelFile    = "churn_model.gob"
	EncodersFile = "label_encoders.json"
	ScalerFile   = "scaler.json"
	OrderFile    = "feature_order.json"
	ReportFile   = "training_report.json"
)

// Metadata describes the training run that produced an artifact set.
type Metadata struct {
	TrainedAt time.Time            `json:"trained_at"`
	Report    training.Report      `json:"report"`
	Clean     training.CleanReport `json:"clean"`
	TestSize  float64              `json:"test_size"`
	Seed      uint64               `json:"seed"`
	Balanced  int                  `json:"balanced_rows"`
	TrainRows int                  `json:"train_rows"`
	TestRows  int                  `json:"test_rows"`
	RunID     uuid.UUID            `json:"run_id"`
}

// NewMetadata stamps a pipeline result with a fresh run ID.
func NewMetadata(res training.Result, cfg training.Config) Metadata {
	return Metadata{
		RunID:     uuid.New(),
		TrainedAt: time.Now().UTC(),
		Seed:      cfg.Seed,
		TestSize:  cfg.TestSize,
		Clean:     res.Clean,
		Balanced:  res.Balanced,
		TrainRows: res.TrainRows,
		TestRows:  res.TestRows,
		Report:    res.Report,
	}
}

// Store reads and writes an artifact set in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the four artifacts and, when meta is non-nil, the training
// report. Each file is written to a temporary name and renamed into place.
func (s *Store) Save(a service.Artifacts, meta *Metadata) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save artifacts: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	var model bytes.Buffer
	if err := a.Classifier.Encode(&model); err != nil {
		return fmt.Errorf("failed to encode classifier: %w", err)
	}
	files := []struct {
		name string
		data func() ([]byte, error)
	}{
		{ModelFile, func() ([]byte, error) { return model.Bytes(), nil }},
		{EncodersFile, func() ([]byte, error) { return marshal(a.Registry) }},
		{ScalerFile, func() ([]byte, error) { return marshal(a.Scaler) }},
		{OrderFile, func() ([]byte, error) { return marshal(a.Order) }},
	}
	if meta != nil {
		files = append(files, struct {
			name string
			data func() ([]byte, error)
		}{ReportFile, func() ([]byte, error) { return marshal(meta) }})
	}

	for _, f := range files {
		data, err := f.data()
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, f.name), data); err != nil {
			return err
		}
	}
	return nil
}

// Load reads all four artifacts and validates them together. The version is
// the training run ID when a report is present.
func (s *Store) Load() (service.Artifacts, error) {
	a := service.Artifacts{Schema: feature.ChurnSchema}

	f, err := os.Open(filepath.Join(s.dir, ModelFile))
	if err != nil {
		return service.Artifacts{}, fmt.Errorf("failed to open %s: %w", ModelFile, err)
	}
	a.Classifier, err = ensemble.Decode(f)
	f.Close()
	if err != nil {
		return service.Artifacts{}, fmt.Errorf("failed to load %s: %w", ModelFile, err)
	}

	a.Registry = &feature.Registry{}
	if err := s.readJSON(EncodersFile, a.Registry); err != nil {
		return service.Artifacts{}, err
	}
	a.Scaler = &feature.Scaler{}
	if err := s.readJSON(ScalerFile, a.Scaler); err != nil {
		return service.Artifacts{}, err
	}
	if err := s.readJSON(OrderFile, &a.Order); err != nil {
		return service.Artifacts{}, err
	}

	meta, err := s.LoadMetadata()
	switch {
	case err == nil:
		a.Version = meta.RunID.String()
	case !errors.Is(err, os.ErrNotExist):
		return service.Artifacts{}, err
	}

	if err := a.Validate(); err != nil {
		return service.Artifacts{}, err
	}
	return a, nil
}

// LoadMetadata reads the optional training report. A missing report yields
// an error matching os.ErrNotExist.
func (s *Store) LoadMetadata() (*Metadata, error) {
	var m Metadata
	if err := s.readJSON(ReportFile, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
