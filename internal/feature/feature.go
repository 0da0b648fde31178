// Package feature implements the feature-tensor dump side channel
// recovered from marginPolish.c's HelenFeatureType enum (SPEC_FULL.md's
// supplemented Feature Dump module). Each Type has its own Emitter rather
// than sharing an aliased implementation, deliberately not reproducing
// the upstream DiploidRLEWeight/ChannelRLEWeight aliasing defect.
package feature

import (
	"fmt"

	"github.com/benedictpaten/marginpolish-go/internal/poa"
)

// Type selects which feature tensor an Emitter writes.
type Type int

const (
	None Type = iota
	SimpleWeight
	SplitRLEWeight
	ChannelRLEWeight
	DiploidRLEWeight
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case SimpleWeight:
		return "simpleWeight"
	case SplitRLEWeight:
		return "splitRLEWeight"
	case ChannelRLEWeight:
		return "channelRLEWeight"
	case DiploidRLEWeight:
		return "diploidRLEWeight"
	default:
		return fmt.Sprintf("feature.Type(%d)", int(t))
	}
}

// ParseType maps a CLI --feature-type flag value to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "simpleWeight":
		return SimpleWeight, nil
	case "splitRLEWeight":
		return SplitRLEWeight, nil
	case "channelRLEWeight":
		return ChannelRLEWeight, nil
	case "diploidRLEWeight":
		return DiploidRLEWeight, nil
	default:
		return None, fmt.Errorf("unrecognised feature type %q", s)
	}
}

// Row is one emitted tensor row: a consensus position's per-base observed
// weight, optionally split by RLE run length and/or haplotype channel.
type Row struct {
	RefPos int
	// Weights is keyed by a channel label the Emitter defines: a plain
	// base ("A","C","G","T","-") for SimpleWeight, "base:runLength" for
	// SplitRLEWeight, "hap:base:runLength" for ChannelRLEWeight/DiploidRLEWeight.
	Weights map[string]float64
}

// HaplotypeGraphs bundles the (up to two) POA graphs a diploid chunk
// produces, so an Emitter can tell which read set backed which channel.
type HaplotypeGraphs struct {
	Hap1 *poa.Graph
	Hap2 *poa.Graph
}

// Emitter converts a chunk's POA output into feature.Row tensor rows.
type Emitter interface {
	Type() Type
	Emit(haploid *poa.Graph, diploid *HaplotypeGraphs) ([]Row, error)
}

// NewEmitter constructs the Emitter for a Type. None returns a nil
// Emitter and no error; callers must check for None before dumping.
func NewEmitter(t Type) (Emitter, error) {
	switch t {
	case None:
		return nil, nil
	case SimpleWeight:
		return simpleWeightEmitter{}, nil
	case SplitRLEWeight:
		return splitRLEWeightEmitter{}, nil
	case ChannelRLEWeight:
		return channelRLEWeightEmitter{}, nil
	case DiploidRLEWeight:
		return diploidRLEWeightEmitter{}, nil
	default:
		return nil, fmt.Errorf("unsupported feature type %s", t)
	}
}
