package platemap

import (
	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// ReconciledRecord is one destination well joined with at most one product.
type ReconciledRecord struct {
	Entry       protocol.DestinationMapEntry `json:"entry"`
	SulfonylKey string                       `json:"s_id"`
	AmineKey    string                       `json:"amine_id"`
	Product     *library.Product             `json:"product,omitempty"`
	// LibraryWell is the product's position on the library plate; nil when
	// unmatched or when no library geometry was given.
	LibraryWell *plate.Well `json:"library_well,omitempty"`
}

// Matched reports whether a product was found.
func (r ReconciledRecord) Matched() bool { return r.Product != nil }

// DuplicateProduct records a product whose key was already taken.
type DuplicateProduct struct {
	SulfonylKey string `json:"s_id"`
	AmineKey    string `json:"amine_id"`
	KeptID      int    `json:"kept_product_id"`
	DroppedID   int    `json:"dropped_product_id"`
}

// MergeOptions controls Merge.
type MergeOptions struct {
	Keys KeyFormat
	// LibraryGeometry, when valid, is used to attach LibraryWell.
	LibraryGeometry plate.Geometry
	Logger          logging.Logger
}

// MergeResult is the authoritative plate map plus everything QC needs.
type MergeResult struct {
	Records    []ReconciledRecord `json:"records"`
	Missing    []ReconciledRecord `json:"missing"`
	Duplicates []DuplicateProduct `json:"duplicates,omitempty"`
}

// Complete reports whether every destination well found its product.
func (r *MergeResult) Complete() bool { return len(r.Missing) == 0 }

// Err is nil when complete and an ErrCodeMergeIncomplete error otherwise.
func (r *MergeResult) Err() error {
	if r.Complete() {
		return nil
	}
	return errors.Newf(errors.ErrCodeMergeIncomplete, "%d of %d destination wells have no product",
		len(r.Missing), len(r.Records))
}

type productKey struct {
	s, a string
}

// Merge left-joins entries (driving side) with products on the rendered
// reagent keys. Every entry yields exactly one record, in entry order. When
// two products share a key the first one wins. Merge never fails;
// completeness is reported through the result.
func Merge(entries []protocol.DestinationMapEntry, products []library.Product, opts MergeOptions) *MergeResult {
	logger := logging.OrNop(opts.Logger)
	keys := opts.Keys
	if keys == (KeyFormat{}) {
		keys = DefaultKeyFormat()
	}
	withLibrary := opts.LibraryGeometry.Validate() == nil

	res := &MergeResult{Records: make([]ReconciledRecord, 0, len(entries))}

	index := make(map[productKey]int, len(products))
	for i, p := range products {
		k := productKey{p.ReagentAID, p.ReagentBID}
		if first, dup := index[k]; dup {
			res.Duplicates = append(res.Duplicates, DuplicateProduct{
				SulfonylKey: k.s, AmineKey: k.a,
				KeptID: products[first].ID, DroppedID: p.ID,
			})
			logger.Warn("duplicate product key, keeping first",
				logging.String("s_id", k.s),
				logging.String("amine_id", k.a),
				logging.Int("kept", products[first].ID),
				logging.Int("dropped", p.ID))
			continue
		}
		index[k] = i
	}

	for _, e := range entries {
		rec := ReconciledRecord{Entry: e}
		if e.Sulfonyl != nil {
			rec.SulfonylKey = keys.Sulfonyl(e.Sulfonyl.Number)
		}
		if e.Amine != nil {
			rec.AmineKey = keys.Amine(e.Amine.Number)
		}
		if e.Sulfonyl != nil && e.Amine != nil {
			if i, ok := index[productKey{rec.SulfonylKey, rec.AmineKey}]; ok {
				p := products[i]
				rec.Product = &p
				if withLibrary {
					if w, err := opts.LibraryGeometry.Coordinate(p.ID); err == nil {
						rec.LibraryWell = &w
					}
				}
			}
		}
		res.Records = append(res.Records, rec)
		if !rec.Matched() {
			res.Missing = append(res.Missing, rec)
		}
	}

	logger.Info("merge complete",
		logging.Int("wells", len(res.Records)),
		logging.Int("missing", len(res.Missing)),
		logging.Int("duplicate_products", len(res.Duplicates)))
	return res
}

//Personal.AI order the ending
