package protocol_analyzer

import (
	"github.com/turtacn/platemap/internal/domain/plate"
	"github.com/turtacn/platemap/pkg/errors"
)

// Symbols are the script names the analyzer recognizes.
type Symbols struct {
	SourcePlate  string `json:"source_plate" yaml:"source_plate" mapstructure:"source_plate" validate:"required"`
	DestPlate    string `json:"dest_plate" yaml:"dest_plate" mapstructure:"dest_plate" validate:"required"`
	RunFunction  string `json:"run_function" yaml:"run_function" mapstructure:"run_function" validate:"required"`
	DefineLiquid string `json:"define_liquid" yaml:"define_liquid" mapstructure:"define_liquid" validate:"required"`
	LoadLiquid   string `json:"load_liquid" yaml:"load_liquid" mapstructure:"load_liquid" validate:"required"`
	Transfer     string `json:"transfer" yaml:"transfer" mapstructure:"transfer" validate:"required"`
}

// DefaultSymbols match the Opentrons Flex protocols the lab writes.
func DefaultSymbols() Symbols {
	return Symbols{
		SourcePlate:  "source_plate",
		DestPlate:    "dest_plate",
		RunFunction:  "run",
		DefineLiquid: "define_liquid",
		LoadLiquid:   "load_liquid",
		Transfer:     "transfer",
	}
}

// Options configures an Analyzer.
type Options struct {
	Symbols Symbols
	// StrictSyntax makes any parse error fatal. When false the analyzer
	// works on whatever tree-sitter recovered.
	StrictSyntax bool
	// Geometry is the live-run destination plate, used for output ordering
	// and out-of-plate detection.
	Geometry plate.Geometry
}

// DefaultOptions returns strict parsing on a 96-well plate.
func DefaultOptions() Options {
	return Options{
		Symbols:      DefaultSymbols(),
		StrictSyntax: true,
		Geometry:     plate.Geometry96,
	}
}

// Validate checks that every symbol is set and the geometry is usable.
func (o Options) Validate() error {
	s := o.Symbols
	for name, v := range map[string]string{
		"source_plate":  s.SourcePlate,
		"dest_plate":    s.DestPlate,
		"run_function":  s.RunFunction,
		"define_liquid": s.DefineLiquid,
		"load_liquid":   s.LoadLiquid,
		"transfer":      s.Transfer,
	} {
		if v == "" {
			return errors.Newf(errors.ErrCodeConfigInvalid, "analyzer symbol %s must not be empty", name)
		}
	}
	return o.Geometry.Validate()
}

//Personal.AI order the ending
