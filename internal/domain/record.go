package domain

import (
	"strconv"
	"time"
)

// ZonalRecord is the terminal unit of the pipeline: one region, one period
// (nil for static variables), one statistic value (nil when the reduction
// had no valid data). Records are flat and uniform so the export is safe to
// join downstream; nils are the explicit missing-data signal, never a
// dropped row.
type ZonalRecord struct {
	RunID       string    `json:"run_id,omitempty"`
	RegionID    string    `json:"region_id"`
	RegionName  string    `json:"region_name"`
	Variable    string    `json:"variable"`
	Period      *int      `json:"period"`
	Statistic   string    `json:"statistic"`
	Value       *float64  `json:"value"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Key is the record's deterministic identity, stable across reruns so
// downstream sinks can upsert idempotently.
func (r ZonalRecord) Key() string {
	period := "static"
	if r.Period != nil {
		period = strconv.Itoa(*r.Period)
	}
	return r.Variable + "|" + r.RegionID + "|" + period
}
