package molecule

// atomicMass holds standard atomic weights for the elements accepted in
// bracket atoms.
var atomicMass = map[string]float64{
	"H": 1.008, "He": 4.0026, "Li": 6.94, "Be": 9.0122, "B": 10.81, "C": 12.011,
	"N": 14.007, "O": 15.999, "F": 18.998, "Ne": 20.180, "Na": 22.990, "Mg": 24.305,
	"Al": 26.982, "Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45, "Ar": 39.948,
	"K": 39.098, "Ca": 40.078, "Sc": 44.956, "Ti": 47.867, "V": 50.942, "Cr": 51.996,
	"Mn": 54.938, "Fe": 55.845, "Co": 58.933, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38,
	"Ga": 69.723, "Ge": 72.630, "As": 74.922, "Se": 78.971, "Br": 79.904, "Kr": 83.798,
	"Rb": 85.468, "Sr": 87.62, "Y": 88.906, "Zr": 91.224, "Mo": 95.95, "Ru": 101.07,
	"Rh": 102.91, "Pd": 106.42, "Ag": 107.87, "Cd": 112.41, "In": 114.82, "Sn": 118.71,
	"Sb": 121.76, "Te": 127.60, "I": 126.90, "Xe": 131.29, "Cs": 132.91, "Ba": 137.33,
	"La": 138.91, "Ce": 140.12, "Gd": 157.25, "W": 183.84, "Os": 190.23, "Ir": 192.22,
	"Pt": 195.08, "Au": 196.97, "Hg": 200.59, "Tl": 204.38, "Pb": 207.2, "Bi": 208.98,
}

// organicSubset lists the elements that may appear without brackets, with
// their normal valences used for implicit hydrogen counting.
var organicSubset = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// aromaticSymbols are the lowercase symbols accepted for aromatic atoms.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

// valenceRows are the main-group periods used for the valence check. A
// charged atom is checked against its isoelectronic neighbour in the row.
var valenceRows = [][]string{
	{"B", "C", "N", "O", "F"},
	{"Al", "Si", "P", "S", "Cl"},
	{"Ga", "Ge", "As", "Se", "Br"},
	{"In", "Sn", "Sb", "Te", "I"},
}

// allowedValences are the total valences (bonds plus hydrogens) accepted by
// Sanitize for neutral atoms.
var allowedValences = map[string][]int{
	"B": {3}, "C": {4}, "N": {3}, "O": {2}, "F": {1},
	"Al": {3}, "Si": {4}, "P": {3, 5, 7}, "S": {2, 4, 6}, "Cl": {1},
	"Ga": {3}, "Ge": {4}, "As": {3, 5, 7}, "Se": {2, 4, 6}, "Br": {1},
	"In": {3}, "Sn": {2, 4}, "Sb": {3, 5, 7}, "Te": {2, 4, 6}, "I": {1, 3, 5},
}

// piDonorOne marks aromatic elements that contribute one electron to the
// aromatic system when they carry no hydrogen, and therefore one extra unit
// of valence.
var piDonorOne = map[string]bool{"B": true, "C": true, "N": true, "P": true, "As": true}

// isElement reports whether sym is a known element symbol.
func isElement(sym string) bool {
	_, ok := atomicMass[sym]
	return ok
}

// effectiveValences returns the allowed valences for element with charge,
// following the isoelectronic row. ok is false when no check applies.
func effectiveValences(element string, charge int) ([]int, bool) {
	if charge == 0 {
		v, ok := allowedValences[element]
		return v, ok
	}
	for _, row := range valenceRows {
		for i, el := range row {
			if el != element {
				continue
			}
			j := i - charge
			if j < 0 || j >= len(row) {
				return nil, false
			}
			v, ok := allowedValences[row[j]]
			return v, ok
		}
	}
	return nil, false
}

//Personal.AI order the ending
