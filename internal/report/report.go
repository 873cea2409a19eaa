// Package report renders station availability as text lines.
package report

import (
	"fmt"
	"io"

	"github.com/bysykkel/bysykkel/internal/availability"
)

// Reporter writes one line per station to an io.Writer.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report writes rows in order. It stops at and returns the first write error.
func (r *Reporter) Report(rows []availability.StationAvailability) error {
	for _, row := range rows {
		if _, err := fmt.Fprintln(r.w, Line(row)); err != nil {
			return fmt.Errorf("write report line: %w", err)
		}
	}
	return nil
}

// Line formats row as "<name>: <bikes> sykler, <docks> stativ".
func Line(row availability.StationAvailability) string {
	return fmt.Sprintf("%s: %d sykler, %d stativ", row.Name, row.Status.NumBikesAvailable, row.Status.NumDocksAvailable)
}
