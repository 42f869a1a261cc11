// Package project loads and saves the single JSON document that round-trips
// an editing session: the probed media descriptor, the detector
// configuration, and every Cut the user or detector has produced.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/farcloser/autocut/internal/types"
)

// document is the on-disk shape. Field names are the stable, user-facing
// contract; types.Project's Go field names are free to diverge.
type document struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	CreatedAt  time.Time            `json:"created_at"`
	ModifiedAt time.Time            `json:"modified_at"`
	Media      *types.MediaInfo     `json:"media,omitempty"`
	Config     types.AnalysisConfig `json:"config"`
	Cuts       []map[string]any     `json:"cuts"`
}

// Save writes p to path as indented JSON, creating parent directories as
// needed.
func Save(path string, p types.Project) error {
	cuts := make([]map[string]any, 0, len(p.Cuts))
	for _, c := range p.Cuts {
		cuts = append(cuts, c.ToMap())
	}

	doc := document{
		ID:         p.ID,
		Name:       p.Name,
		CreatedAt:  p.CreatedAt,
		ModifiedAt: p.ModifiedAt,
		Media:      p.Media,
		Config:     p.Config,
		Cuts:       cuts,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling project: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // project files are not secrets
		return fmt.Errorf("writing project file %s: %w", path, err)
	}

	return nil
}

// Load reads and parses a project file saved by Save.
func Load(path string) (types.Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // CLI tool opens user-specified paths
	if err != nil {
		return types.Project{}, fmt.Errorf("reading project file %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return types.Project{}, fmt.Errorf("parsing project file %s: %w", path, err)
	}

	cuts := make([]types.Cut, 0, len(doc.Cuts))

	for _, raw := range doc.Cuts {
		c, err := types.CutFromMap(raw)
		if err != nil {
			return types.Project{}, fmt.Errorf("project file %s: %w", path, err)
		}

		cuts = append(cuts, c)
	}

	return types.Project{
		ID:         doc.ID,
		Name:       doc.Name,
		CreatedAt:  doc.CreatedAt,
		ModifiedAt: doc.ModifiedAt,
		Media:      doc.Media,
		Config:     doc.Config,
		Cuts:       cuts,
	}, nil
}
