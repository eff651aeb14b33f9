package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadPredictions reads a fair-value prediction file for the ratio strategy.
// The file is CSV with columns date,pred[,target]; a header row is skipped
// when the first field does not parse as a date. Rows without a target column
// contribute to preds only.
func LoadPredictions(path string) (preds, targets map[string]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	preds = make(map[string]float64)
	targets = make(map[string]float64)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) < 2 {
			return nil, nil, fmt.Errorf("%s line %d: expected date,pred[,target]", path, line)
		}

		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("%s line %d: bad date %q", path, line, rec[0])
		}
		day := date.Format("2006-01-02")

		pred, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: bad prediction %q", path, line, rec[1])
		}
		preds[day] = pred

		if len(rec) > 2 && rec[2] != "" {
			target, err := strconv.ParseFloat(rec[2], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s line %d: bad target %q", path, line, rec[2])
			}
			targets[day] = target
		}
	}
	return preds, targets, nil
}
