package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kikiluvv/motionbeat/internal/motion"
)

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, table *motion.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for r := range table.All() {
		if err := cw.Write(FrameOf(r).row()); err != nil {
			return fmt.Errorf("frame %d: %w", r.FrameIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
