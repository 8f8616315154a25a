// Package store persists generated GP training datasets: one record per
// dataset holding the sampled inputs, clean and noisy outputs, the fitted
// hyperparameters and the injected noise level.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/macoska/vpc-switched-motion/dataset"
	"github.com/macoska/vpc-switched-motion/gp"
	"gonum.org/v1/gonum/mat"
)

// Record is one persisted dataset.
type Record struct {
	// ID identifies the source trajectory or pool
	ID string `json:"id"`
	// X is the sampled input position matrix
	X [][]float64 `json:"X"`
	// XFull is the full-trajectory position sequence
	XFull [][]float64 `json:"X_full,omitempty"`
	// YNoisy is the noise-injected output matrix
	YNoisy [][]float64 `json:"Y_noisy"`
	// YClean is the clean reference output matrix
	YClean [][]float64 `json:"Y_clean,omitempty"`
	// Hyperparameters is the fitted shared hyperparameter set
	Hyperparameters *gp.Hyperparameters `json:"hyperparameters,omitempty"`
	// ChannelHyperparameters are the fitted per-channel sets
	ChannelHyperparameters []*gp.Hyperparameters `json:"hyperparameters_per_channel,omitempty"`
	// NoiseLevel is the per-channel noise standard deviation
	NoiseLevel []float64 `json:"noise_level,omitempty"`
	// NoiseLevels holds per-source noise levels for pooled records
	NoiseLevels [][]float64 `json:"noise_levels,omitempty"`
	// Sources lists the pooled source dataset identifiers
	Sources []string `json:"sources,omitempty"`
}

// NewRecord builds a Record from a fitted per-trajectory dataset.
func NewRecord(d *dataset.Dataset, res *gp.Result) *Record {
	rec := &Record{
		ID:         d.ID,
		X:          toRows(d.X),
		YNoisy:     toRows(d.YNoisy),
		YClean:     toRows(d.Y),
		NoiseLevel: d.NoiseLevel,
	}

	if d.Trajectory != nil {
		rec.XFull = toRows(d.Trajectory.Positions())
	}

	if res != nil {
		rec.Hyperparameters = res.Joint
		rec.ChannelHyperparameters = res.Channels
	}

	return rec
}

// NewPooledRecord builds a Record from a fitted pooled dataset.
func NewPooledRecord(p *dataset.Pooled, res *gp.Result) *Record {
	rec := &Record{
		ID:          p.ID,
		X:           toRows(p.X),
		YNoisy:      toRows(p.YNoisy),
		NoiseLevels: p.NoiseLevels,
		Sources:     p.Sources,
	}

	if res != nil {
		rec.Hyperparameters = res.Joint
		rec.ChannelHyperparameters = res.Channels
	}

	return rec
}

// Store persists dataset records.
type Store interface {
	// Save persists the record
	Save(rec *Record) error
	// Load reads the record with the given id
	Load(id string) (*Record, error)
}

// FileStore persists records as JSON files in a directory, one file per
// record named after its ID.
type FileStore struct {
	dir string
}

// NewFileStore creates a new FileStore rooted at dir, creating the directory
// if needed. It returns error if the directory cannot be created.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty store directory")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %v", err)
	}

	return &FileStore{dir: dir}, nil
}

// Save persists the record as <dir>/<id>.json.
// It returns error if the record has no ID or the write fails.
func (s *FileStore) Save(rec *Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record has no ID")
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %v", rec.ID, err)
	}

	if err := os.WriteFile(s.path(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %v", rec.ID, err)
	}

	return nil
}

// Load reads the record with the given id.
// It returns error if the record does not exist or cannot be decoded.
func (s *FileStore) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %v", id, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %v", id, err)
	}

	return rec, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func toRows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}

	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}

	return out
}
