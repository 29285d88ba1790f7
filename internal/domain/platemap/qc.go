package platemap

import (
	"fmt"
	"io"
	"strings"

	"github.com/turtacn/platemap/internal/domain/protocol"
)

// MissingRow is a destination well without a product.
type MissingRow struct {
	Well        string `json:"well"`
	SulfonylKey string `json:"s_id"`
	AmineKey    string `json:"amine_id"`
}

// QCReport summarizes merge completeness and, when known, the analyzer
// findings that explain gaps.
type QCReport struct {
	TotalWells int                         `json:"total_wells"`
	Missing    []MissingRow                `json:"missing"`
	Duplicates []DuplicateProduct          `json:"duplicates,omitempty"`
	Conflicts  []protocol.Conflict         `json:"conflicts,omitempty"`
	Excluded   []protocol.ExcludedTransfer `json:"excluded,omitempty"`
}

// Report builds the QC report for r. analysis may be nil when the
// destination map was read from a file.
func (r *MergeResult) Report(analysis *protocol.Result) *QCReport {
	q := &QCReport{
		TotalWells: len(r.Records),
		Missing:    make([]MissingRow, 0, len(r.Missing)),
		Duplicates: r.Duplicates,
	}
	for _, m := range r.Missing {
		q.Missing = append(q.Missing, MissingRow{
			Well:        m.Entry.Well.Label,
			SulfonylKey: m.SulfonylKey,
			AmineKey:    m.AmineKey,
		})
	}
	if analysis != nil {
		q.Conflicts = analysis.Conflicts
		q.Excluded = analysis.Excluded
	}
	return q
}

// MissingCount is len(Missing).
func (q *QCReport) MissingCount() int { return len(q.Missing) }

// Render returns the text report.
func (q *QCReport) Render() string {
	var sb strings.Builder
	_, _ = q.WriteTo(&sb)
	return sb.String()
}

// WriteTo writes the text report to w.
func (q *QCReport) WriteTo(w io.Writer) (int64, error) {
	var lines []string
	lines = append(lines,
		fmt.Sprintf("Total wells: %d", q.TotalWells),
		fmt.Sprintf("Missing: %d", len(q.Missing)))
	if len(q.Missing) > 0 {
		lines = append(lines, "Missing rows (Well, S_ID, Amine_ID):")
		for _, m := range q.Missing {
			lines = append(lines, fmt.Sprintf("  %s, %s, %s", m.Well, m.SulfonylKey, m.AmineKey))
		}
	}
	if len(q.Duplicates) > 0 {
		lines = append(lines, "Duplicate products (S_ID, Amine_ID, kept, dropped):")
		for _, d := range q.Duplicates {
			lines = append(lines, fmt.Sprintf("  %s, %s, %d, %d", d.SulfonylKey, d.AmineKey, d.KeptID, d.DroppedID))
		}
	}
	if len(q.Conflicts) > 0 {
		lines = append(lines, "Conflicts (Well, class, kept, rejected, line):")
		for _, c := range q.Conflicts {
			lines = append(lines, fmt.Sprintf("  %s, %s, %d from %s, %d from %s, %d",
				c.Well.Label, c.Class, c.Kept.Number, c.Kept.SourceWell.Label,
				c.Rejected.Number, c.Rejected.SourceWell.Label, c.Line))
		}
	}
	if len(q.Excluded) > 0 {
		lines = append(lines, "Excluded transfers (line, source well, reason):")
		for _, x := range q.Excluded {
			line := fmt.Sprintf("  %d, %s, %s", x.Line, x.SourceWell.Label, x.Reason)
			if x.Detail != "" {
				line += " (" + x.Detail + ")"
			}
			lines = append(lines, line)
		}
	}
	n, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return int64(n), err
}

//Personal.AI order the ending
