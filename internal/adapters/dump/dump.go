// Package dump renders a registry snapshot as a human-readable YAML document.
package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/ecopoints/internal/adapters/repository"
	"go.yaml.in/yaml/v3"
)

const timeLayout = "2006-01-02 15:04:05 MST"

type document struct {
	SavedAt           string      `yaml:"saved_at"`
	Households        int         `yaml:"households"`
	CommunityWeightKg float64     `yaml:"community_weight_kg"`
	Entries           []household `yaml:"entries"`
}

type household struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Address     string  `yaml:"address,omitempty"`
	JoinDate    string  `yaml:"join_date"`
	TotalKg     float64 `yaml:"total_weight_kg"`
	TotalPoints float64 `yaml:"total_points"`
	Events      []event `yaml:"events,omitempty"`
}

type event struct {
	Date      string  `yaml:"date"`
	Material  string  `yaml:"material"`
	WeightKg  float64 `yaml:"weight_kg"`
	EcoPoints float64 `yaml:"eco_points"`
}

// Write renders snap to w.
func Write(w io.Writer, snap repository.Snapshot) error {
	doc := document{
		SavedAt:    snap.SavedAt.Format(timeLayout),
		Households: len(snap.Households),
		Entries:    make([]household, 0, len(snap.Households)),
	}
	for _, h := range snap.Households {
		out := household{
			ID:       h.ID,
			Name:     h.Name,
			Address:  h.Address,
			JoinDate: h.JoinDate.Format(timeLayout),
		}
		for _, e := range h.Events {
			out.TotalKg += e.WeightKg
			out.TotalPoints += e.EcoPoints
			out.Events = append(out.Events, event{
				Date:      e.RecordedAt.Format(timeLayout),
				Material:  e.MaterialType,
				WeightKg:  e.WeightKg,
				EcoPoints: e.EcoPoints,
			})
		}
		doc.CommunityWeightKg += out.TotalKg
		doc.Entries = append(doc.Entries, out)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	return enc.Close()
}

// WriteFile renders snap to path. The file is replaced only once the new
// content has been fully written.
func WriteFile(path string, snap repository.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp dump: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, snap); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dump: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dump: %w", err)
	}
	return nil
}
