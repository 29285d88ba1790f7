// Package library models the combinatorial product library: the two reagent
// lists, the N×M products enumerated from them and the library plate each
// product is placed on.
package library

import (
	"strings"

	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/pkg/errors"
)

// Reagent is one row of a reagent list. Structure is opaque to this package
// and only handed to the Oracle.
type Reagent struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Structure string `json:"structure" yaml:"structure"`
	// Row is the zero-based data row the reagent was read from.
	Row int `json:"row" yaml:"row"`
}

// ValidateReagents checks that ids are present and unique within one list.
func ValidateReagents(list []Reagent) error {
	seen := make(map[string]int, len(list))
	for i, r := range list {
		if strings.TrimSpace(r.ID) == "" {
			return errors.Newf(errors.ErrCodeReagentRead, "reagent at position %d has no id", i)
		}
		if prev, dup := seen[r.ID]; dup {
			return errors.Newf(errors.ErrCodeReagentDuplicateID, "reagent id %q repeated", r.ID).
				WithDetailf("rows %d and %d", list[prev].Row, r.Row)
		}
		seen[r.ID] = i
	}
	return nil
}

// Status is the reaction outcome of one product.
type Status string

const (
	// StatusSuccess means the oracle produced a valid product.
	StatusSuccess Status = "OK_REACTION"
	// StatusFallbackCombined means the reagents were emitted as disconnected
	// components.
	StatusFallbackCombined Status = "FALLBACK_COMBINEMOLS"
)

// ParseStatus accepts the serialized form and the short names.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(StatusSuccess), "SUCCESS":
		return StatusSuccess, nil
	case string(StatusFallbackCombined), "FALLBACKCOMBINED", "FALLBACK":
		return StatusFallbackCombined, nil
	default:
		return "", errors.Newf(errors.ErrCodeMergeValueInvalid, "unknown product status %q", s)
	}
}

// Product is one enumerated pair. IDs are dense over 0..N*M-1 in
// (A-index, B-index) row-major order.
type Product struct {
	ID          int                   `json:"product_id" yaml:"product_id"`
	ReagentAID  string                `json:"reagent_a_id" yaml:"reagent_a_id"`
	ReagentBID  string                `json:"reagent_b_id" yaml:"reagent_b_id"`
	Structure   string                `json:"structure" yaml:"structure"`
	Status      Status                `json:"status" yaml:"status"`
	Descriptors *molecule.Descriptors `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
}

// PlateAssignment places one product on the library plate.
type PlateAssignment struct {
	ProductID int        `json:"product_id" yaml:"product_id"`
	Well      plate.Well `json:"well" yaml:"well"`
}

// AssignPlates maps every product id through the geometry, in product order.
func AssignPlates(products []Product, g plate.Geometry) ([]PlateAssignment, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := make([]PlateAssignment, 0, len(products))
	for _, p := range products {
		w, err := g.Coordinate(p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, PlateAssignment{ProductID: p.ID, Well: w})
	}
	return out, nil
}

// Summary counts products by status.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Success  int `json:"success" yaml:"success"`
	Fallback int `json:"fallback" yaml:"fallback"`
}

// Summarize counts the statuses in products.
func Summarize(products []Product) Summary {
	s := Summary{Total: len(products)}
	for _, p := range products {
		if p.Status == StatusSuccess {
			s.Success++
		} else {
			s.Fallback++
		}
	}
	return s
}

//Personal.AI order the ending
