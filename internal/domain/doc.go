// Package domain models annual, region-level summaries of raster
// geophysical datasets.
//
// # Data Sources
//
// Three variables are aggregated over a fixed set of administrative
// polygons:
//
//	nightlights: monthly nighttime-light composites, band "avg_rad"
//	  (average radiance, nW/cm²/sr). Nominal resolution ~500 m.
//	vegetation:  16-day vegetation health index, band "NDVI". Source
//	  values are scaled integers; a 0.0001 rescale restores the
//	  [-1, 1] index range. Nominal resolution ~250 m.
//	elevation:   a single static digital elevation model, band
//	  "elevation" (meters). Nominal resolution ~30 m. No time
//	  dimension; aggregated directly, one value per region.
//
// # Aggregation Model
//
// Temporal variables are bucketed into calendar years (UTC, half-open:
// an image stamped exactly at midnight January 1 belongs to the new
// year) and reduced per pixel with a mean to one composite per year.
// Mean was chosen because it is insensitive to image order within a
// bucket; only accumulated rounding differs, so tests compare with a
// floating tolerance rather than exact equality.
//
// Each composite is then reduced spatially: the grid is resampled on a
// lattice whose spacing is the variable's nominal scale, lattice cell
// centers are masked against each region's polygon, and the mean of
// the valid masked samples becomes that region's value. The lattice is
// anchored at the grid origin, never at a region's bounding box, so
// every reduction strategy visits the same sample set for a region.
//
// # Missing Data
//
// NaN is the nodata value throughout. A year with no contributing
// images composites to all-NaN pixels; a region with no valid samples
// reduces to a nil value. Neither case drops a record: output
// cardinality is always |regions| x |years| for temporal variables and
// |regions| for static ones, with nils as the explicit missing-data
// signal.
//
// # Resource Limits
//
// A region whose lattice footprint exceeds a variable's pixel budget
// fails that one reduction with a BudgetExceededError; callers convert
// it to a nil value and continue. The tile hint bounds how many
// lattice rows are materialized per internal step and must never
// change a numeric result.
package domain
