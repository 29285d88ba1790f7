// Package platemap reconciles the analyzed destination map with the
// enumerated product table into the authoritative plate map.
package platemap

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/turtacn/platemap/internal/domain/protocol"
	"github.com/turtacn/platemap/pkg/errors"
)

// KeyFormat renders analyzer reagent numbers into the identifier strings the
// reagent lists use, e.g. 7 → "S_007" and 12 → "Amine_ID_012".
type KeyFormat struct {
	SulfonylPrefix string `json:"sulfonyl_prefix" yaml:"sulfonyl_prefix" mapstructure:"sulfonyl_prefix" validate:"required"`
	AminePrefix    string `json:"amine_prefix" yaml:"amine_prefix" mapstructure:"amine_prefix" validate:"required"`
	Width          int    `json:"width" yaml:"width" mapstructure:"width" validate:"gte=1,lte=9"`
}

// DefaultKeyFormat matches the enumeration reagent lists.
func DefaultKeyFormat() KeyFormat {
	return KeyFormat{SulfonylPrefix: "S_", AminePrefix: "Amine_ID_", Width: 3}
}

// Validate checks prefixes and width.
func (k KeyFormat) Validate() error {
	if k.SulfonylPrefix == "" || k.AminePrefix == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "key prefixes must not be empty")
	}
	if k.SulfonylPrefix == k.AminePrefix {
		return errors.New(errors.ErrCodeConfigInvalid, "sulfonyl and amine key prefixes must differ")
	}
	if k.Width < 1 {
		return errors.Newf(errors.ErrCodeConfigInvalid, "key width must be positive, got %d", k.Width)
	}
	return nil
}

// Key renders number for class. Unknown classes render empty.
func (k KeyFormat) Key(class protocol.ReagentClass, number int) string {
	switch class {
	case protocol.ClassSulfonyl:
		return fmt.Sprintf("%s%0*d", k.SulfonylPrefix, k.Width, number)
	case protocol.ClassAmine:
		return fmt.Sprintf("%s%0*d", k.AminePrefix, k.Width, number)
	default:
		return ""
	}
}

// Sulfonyl is Key(ClassSulfonyl, n).
func (k KeyFormat) Sulfonyl(n int) string { return k.Key(protocol.ClassSulfonyl, n) }

// Amine is Key(ClassAmine, n).
func (k KeyFormat) Amine(n int) string { return k.Key(protocol.ClassAmine, n) }

// Number parses a key back into its number. ok is false when key does not
// carry the class prefix followed by digits.
func (k KeyFormat) Number(class protocol.ReagentClass, key string) (int, bool) {
	prefix := k.SulfonylPrefix
	if class == protocol.ClassAmine {
		prefix = k.AminePrefix
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)$`)
	m := re.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

//Personal.AI order the ending
