package domain

import "fmt"

// BandNotFoundError reports a requested band that is absent from a raster.
// It is fatal to the variable being aggregated: the error surfaces before
// any reduction work begins and is never retried.
type BandNotFoundError struct {
	Band string
}

func (e *BandNotFoundError) Error() string {
	return fmt.Sprintf("band %q not found", e.Band)
}

// BudgetExceededError reports a single region whose sampling footprint is
// larger than the configured pixel budget. It is recoverable: the caller
// converts it to a nil value for that region and the run continues.
type BudgetExceededError struct {
	Region string
	Pixels int64
	Budget int64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("region %q: aggregation budget exceeded: %d pixels > budget %d", e.Region, e.Pixels, e.Budget)
}
