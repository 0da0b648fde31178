// Package params loads the polishing parameter document: RLE toggles,
// chunking geometry, the RLE substitution matrix, and the POA/phaser
// hyperparameters. The document is JSON, decoded once at startup with
// encoding/json (matching the teacher's own metadata/header/index sidecar
// decoding style) into an immutable value shared by reference across all
// workers.
package params

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/benedictpaten/marginpolish-go/internal/errs"
	"github.com/benedictpaten/marginpolish-go/internal/feature"
	"github.com/benedictpaten/marginpolish-go/internal/rle"
)

// PoaParams holds POA-engine hyperparameters (§4.4).
type PoaParams struct {
	MaxRealignIterations   int     `json:"maxRealignIterations"`
	RealignConvergenceFrac float64 `json:"realignConvergenceFraction"`
	MinInsertPromotionFrac float64 `json:"minInsertPromotionFraction"`
	BandWidth              int     `json:"bandWidth"`
}

// BubbleParams holds bubble-graph extraction hyperparameters (§4.6).
type BubbleParams struct {
	MinAlleleSupport      float64 `json:"minAlleleSupport"`
	UseReadAlleles        bool    `json:"useReadAlleles"`
	UseReadAllelesInPhase bool    `json:"useReadAllelesInPhasing"`
}

// PhaseParams holds phaser hyperparameters (§4.7).
type PhaseParams struct {
	PriorHetRate        float64 `json:"priorHetRate"`
	ReadErrorRate       float64 `json:"readErrorRate"`
	MaxEMIterations     int     `json:"maxEMIterations"`
	UnphasedConfidence  float64 `json:"unphasedConfidenceThreshold"`
}

// Params is the top-level, immutable parameter document.
type Params struct {
	UseRunLengthEncoding bool         `json:"useRunLengthEncoding"`
	MaxDepth             int          `json:"maxDepth"`
	ChunkSize            int          `json:"chunkSize"`
	ChunkBoundary        int          `json:"chunkBoundary"`
	ShuffleChunks        bool         `json:"shuffleChunks"`
	BoundaryAtMatch      bool         `json:"boundaryAtMatch"`
	Poa                  PoaParams    `json:"poa"`
	Bubble               BubbleParams `json:"bubble"`
	Phase                PhaseParams  `json:"phase"`
	RLEMatrix            rle.SubstitutionMatrixDoc `json:"rleSubstitutionMatrix"`
	FeatureType          feature.Type `json:"-"`
}

// Load reads and validates a parameter document from path.
func Load(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: parameter file %s: %v", errs.ErrInputUnavailable, path, err)
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parsing parameter file %s: %v", errs.ErrInputUnavailable, path, err)
	}
	if p.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunkSize must be positive, got %d", errs.ErrParameterInconsistent, p.ChunkSize)
	}
	if p.ChunkBoundary < 0 {
		return nil, fmt.Errorf("%w: chunkBoundary must be non-negative, got %d", errs.ErrParameterInconsistent, p.ChunkBoundary)
	}
	if p.Poa.MaxRealignIterations <= 0 {
		p.Poa.MaxRealignIterations = 2
	}
	if p.Poa.BandWidth <= 0 {
		p.Poa.BandWidth = 50
	}
	if p.Phase.MaxEMIterations <= 0 {
		p.Phase.MaxEMIterations = 10
	}
	if p.Phase.PriorHetRate <= 0 || p.Phase.PriorHetRate >= 1 {
		p.Phase.PriorHetRate = 0.001
	}
	return &p, nil
}

// ValidateFeatureMode checks the ParameterInconsistent invariant that
// feature-dump modes other than SimpleWeight require RLE (§7).
func (p *Params) ValidateFeatureMode(t feature.Type) error {
	if t == feature.None || t == feature.SimpleWeight {
		return nil
	}
	if !p.UseRunLengthEncoding {
		return fmt.Errorf("%w: feature type %s requires useRunLengthEncoding", errs.ErrParameterInconsistent, t)
	}
	return nil
}

// OverrideDepth applies a command-line depth override (-p/--depth), taking
// precedence over the value carried in the parameter document.
func (p *Params) OverrideDepth(depth int) {
	if depth >= 0 {
		p.MaxDepth = depth
	}
}
