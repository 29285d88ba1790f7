package tabular

import (
	"io"
	"strconv"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/domain/molecule"
	"github.com/turtacn/platemap/internal/domain/platemap"
	"github.com/turtacn/platemap/pkg/errors"
)

// Product table, plate map and merged output columns.
const (
	ColProductID     = "ProductID"
	ColSID           = "S_ID"
	ColAmineID       = "Amine_ID"
	ColSMILES        = "SMILES"
	ColStatus        = "Status"
	ColFormula       = "Formula"
	ColMolWt         = "MolWt"
	ColHeavyAtoms    = "HeavyAtoms"
	ColHBD           = "HBD"
	ColHBA           = "HBA"
	ColTPSA          = "TPSA"
	ColRotBonds      = "RotBonds"
	ColRingCount     = "RingCount"
	ColFracCSP3      = "FracCSP3"
	ColPlate         = "Plate"
	ColRow           = "Row"
	ColCol           = "Col"
	ColProductSMILES = "ProductSMILES"
	ColLibraryPlate  = "LibraryPlate"
	ColLibraryWell   = "LibraryWell"
)

var (
	// ProductHeader is the column order of the product table.
	ProductHeader = []string{ColProductID, ColSID, ColAmineID, ColSMILES, ColStatus,
		ColFormula, ColMolWt, ColHeavyAtoms, ColTPSA, ColHBD, ColHBA, ColRotBonds, ColRingCount, ColFracCSP3}
	// PlateMapHeader is the column order of the library plate map.
	PlateMapHeader = []string{ColPlate, ColRow, ColCol, ColWell, ColProductID, ColProductSMILES, ColSID, ColAmineID}
	// AuthoritativeHeader is the destination map followed by the joined
	// product columns.
	AuthoritativeHeader = append(append([]string{}, DestinationMapHeader...),
		ColSID, ColAmineID, ColProductID, ColSMILES, ColStatus, ColLibraryPlate, ColLibraryWell)
)

// WriteProducts writes the product table in product order. Descriptor cells
// are empty for products without descriptors.
func WriteProducts(w io.Writer, products []library.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		row := []string{strconv.Itoa(p.ID), p.ReagentAID, p.ReagentBID, p.Structure, string(p.Status),
			"", "", "", "", "", "", "", "", ""}
		if d := p.Descriptors; d != nil {
			row[5] = d.Formula
			row[6] = formatFloat(d.MolWt, 3)
			row[7] = strconv.Itoa(d.HeavyAtoms)
			row[8] = formatFloat(d.TPSA, 2)
			row[9] = strconv.Itoa(d.HBD)
			row[10] = strconv.Itoa(d.HBA)
			row[11] = strconv.Itoa(d.RotBonds)
			row[12] = strconv.Itoa(d.RingCount)
			row[13] = formatFloat(d.FracCSP3, 3)
		}
		rows = append(rows, row)
	}
	return writeAll(w, ProductHeader, rows)
}

// ReadProducts reads a product table. ProductID, S_ID, Amine_ID and SMILES
// are required; Status defaults to OK_REACTION when the column is absent.
// Descriptor columns are read when all of them are present and non-empty.
func ReadProducts(r io.Reader) ([]library.Product, error) {
	h, rows, err := readAll(r, errors.ErrCodeMergeInputRead)
	if err != nil {
		return nil, err
	}
	if err := h.require(errors.ErrCodeMergeColumnMissing, ColProductID, ColSID, ColAmineID, ColSMILES); err != nil {
		return nil, err
	}

	out := make([]library.Product, 0, len(rows))
	for i, rec := range rows {
		id, err := parseNumber(h.get(rec, ColProductID))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMergeValueInvalid, "product row %d", i+1)
		}
		p := library.Product{
			ID:         id,
			ReagentAID: h.get(rec, ColSID),
			ReagentBID: h.get(rec, ColAmineID),
			Structure:  h.get(rec, ColSMILES),
			Status:     library.StatusSuccess,
		}
		if raw := h.get(rec, ColStatus); raw != "" {
			if p.Status, err = library.ParseStatus(raw); err != nil {
				return nil, errors.Wrapf(err, errors.ErrCodeMergeValueInvalid, "product row %d", i+1)
			}
		}
		p.Descriptors = readDescriptors(h, rec)
		out = append(out, p)
	}
	return out, nil
}

func readDescriptors(h header, rec []string) *molecule.Descriptors {
	formula := h.get(rec, ColFormula)
	if formula == "" {
		return nil
	}
	d := &molecule.Descriptors{Formula: formula}
	var err error
	if d.MolWt, err = strconv.ParseFloat(h.get(rec, ColMolWt), 64); err != nil {
		return nil
	}
	if d.TPSA, err = strconv.ParseFloat(h.get(rec, ColTPSA), 64); err != nil {
		return nil
	}
	if d.FracCSP3, err = strconv.ParseFloat(h.get(rec, ColFracCSP3), 64); err != nil {
		return nil
	}
	for col, dst := range map[string]*int{
		ColHeavyAtoms: &d.HeavyAtoms,
		ColHBD:        &d.HBD,
		ColHBA:        &d.HBA,
		ColRotBonds:   &d.RotBonds,
		ColRingCount:  &d.RingCount,
	} {
		if *dst, err = strconv.Atoi(h.get(rec, col)); err != nil {
			return nil
		}
	}
	return d
}

// PlateMapFileName names the library plate map after the plate capacity.
func PlateMapFileName(base string, capacity int) string {
	return base + "_plate_map_" + strconv.Itoa(capacity) + ".csv"
}

// ProductsFileName names the product table.
func ProductsFileName(base string) string {
	return base + "_final_products.csv"
}

// WritePlateMap writes one row per assignment. Assignments and products are
// matched by product id.
func WritePlateMap(w io.Writer, products []library.Product, assignments []library.PlateAssignment) error {
	byID := make(map[int]library.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		p, ok := byID[a.ProductID]
		if !ok {
			return errors.Newf(errors.ErrCodeInternal, "plate assignment for unknown product %d", a.ProductID)
		}
		rows = append(rows, []string{
			strconv.Itoa(a.Well.Plate),
			a.Well.RowLabel(),
			strconv.Itoa(a.Well.Column),
			a.Well.Label,
			strconv.Itoa(p.ID),
			p.Structure,
			p.ReagentAID,
			p.ReagentBID,
		})
	}
	return writeAll(w, PlateMapHeader, rows)
}

// WriteAuthoritative writes the merged plate map in record order. Product
// cells are empty for unmatched records.
func WriteAuthoritative(w io.Writer, records []platemap.ReconciledRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := append(destinationCells(rec.Entry), rec.SulfonylKey, rec.AmineKey, "", "", "", "", "")
		if p := rec.Product; p != nil {
			row[7] = strconv.Itoa(p.ID)
			row[8] = p.Structure
			row[9] = string(p.Status)
		}
		if lw := rec.LibraryWell; lw != nil {
			row[10] = strconv.Itoa(lw.Plate)
			row[11] = lw.Label
		}
		rows = append(rows, row)
	}
	return writeAll(w, AuthoritativeHeader, rows)
}

//Personal.AI order the ending
