// Command genfixtures writes a small synthetic raster archive plus a region
// boundary file, suitable for local runs and for regenerating test fixtures.
// The generated grids use smooth deterministic value fields so zonal means
// are stable across regenerations.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data -regions 4 -years 2014:2016
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lkkmills/gee/internal/domain"
	"github.com/lkkmills/gee/internal/source"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "output directory for regions.geojson and rasters/")
	regions := flag.Int("regions", 4, "number of square regions to generate")
	years := flag.String("years", "2014:2016", "inclusive year range for temporal variables, start:end")
	flag.Parse()

	startYear, endYear, err := parseYears(*years)
	if err != nil {
		return err
	}

	rasterDir := filepath.Join(*out, "rasters")
	if err := os.MkdirAll(rasterDir, 0o755); err != nil {
		return err
	}

	if err := writeRegions(filepath.Join(*out, "regions.geojson"), *regions); err != nil {
		return fmt.Errorf("writing regions: %w", err)
	}
	log.Printf("wrote %d regions: %s", *regions, filepath.Join(*out, "regions.geojson"))

	manifest := source.Manifest{Variables: map[string]source.ManifestVariable{}}

	// Monthly observations for each temporal variable, one file per band.
	temporal := []struct {
		variable string
		band     string
		months   []time.Month
	}{
		{variable: "nightlights", band: "avg_rad", months: []time.Month{time.March, time.November}},
		{variable: "vegetation", band: "NDVI", months: []time.Month{time.February, time.July, time.October}},
	}
	for _, tv := range temporal {
		var images []source.ManifestImage
		for year := startYear; year <= endYear; year++ {
			for _, month := range tv.months {
				ts := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
				name := fmt.Sprintf("%s_%s.asc", tv.variable, ts.Format("200601"))
				if err := writeGrid(filepath.Join(rasterDir, name), tv.variable, ts); err != nil {
					return fmt.Errorf("writing %s: %w", name, err)
				}
				images = append(images, source.ManifestImage{
					Timestamp: ts,
					Bands:     map[string]string{tv.band: name},
				})
			}
		}
		manifest.Variables[tv.variable] = source.ManifestVariable{Images: images}
		log.Printf("%s: %d images", tv.variable, len(images))
	}

	// Single static elevation image.
	if err := writeGrid(filepath.Join(rasterDir, "elevation.asc"), "elevation", time.Time{}); err != nil {
		return fmt.Errorf("writing elevation.asc: %w", err)
	}
	manifest.Variables["elevation"] = source.ManifestVariable{Images: []source.ManifestImage{
		{Timestamp: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), Bands: map[string]string{"elevation": "elevation.asc"}},
	}}

	if err := writeJSON(filepath.Join(rasterDir, "manifest.json"), manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	log.Printf("wrote manifest: %s", filepath.Join(rasterDir, "manifest.json"))
	return nil
}

func parseYears(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid -years %q, want start:end", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -years %q: %w", s, err)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -years %q: %w", s, err)
	}
	if start > end {
		return 0, 0, fmt.Errorf("invalid -years %q: start after end", s)
	}
	return start, end, nil
}

// writeRegions lays out n unit-square regions along the x axis with a small
// gap between neighbours, all inside the generated grids' extent.
func writeRegions(path string, n int) error {
	type geometry struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	type feature struct {
		Type       string            `json:"type"`
		Properties map[string]string `json:"properties"`
		Geometry   geometry          `json:"geometry"`
	}
	type collection struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}

	fc := collection{Type: "FeatureCollection"}
	for i := 0; i < n; i++ {
		x0 := float64(i) * 1.5
		ring := [][]float64{
			{x0, 0}, {x0 + 1, 0}, {x0 + 1, 1}, {x0, 1}, {x0, 0},
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Properties: map[string]string{"name": fmt.Sprintf("region-%d", i+1), "id": fmt.Sprintf("R%03d", i+1)},
			Geometry:   geometry{Type: "Polygon", Coordinates: [][][]float64{ring}},
		})
	}
	return writeJSON(path, fc)
}

// writeGrid emits a 200x40 grid covering x in [-1, 9], y in [-0.5, 1.5] at
// 0.05 cell size. Values vary smoothly with position, variable, and month so
// every (region, year) pair gets a distinct but reproducible mean.
func writeGrid(path, variable string, ts time.Time) error {
	const cell = 0.05
	g := domain.NewGrid(-1, 1.5, cell, 200, 40)

	var base, amp float64
	switch variable {
	case "nightlights":
		base, amp = 20, 10
	case "vegetation":
		base, amp = 4000, 2500 // raw NDVI, rescaled by 1e-4 in the pipeline
	case "elevation":
		base, amp = 300, 150
	default:
		base, amp = 1, 1
	}
	season := 0.0
	if !ts.IsZero() {
		season = math.Sin(2 * math.Pi * float64(ts.Month()) / 12)
	}

	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			x := g.MinX + (float64(col)+0.5)*cell
			y := g.MaxY - (float64(row)+0.5)*cell
			v := base + amp*math.Sin(x)*math.Cos(y) + 0.1*amp*season
			// Punch a nodata hole so fixtures exercise missing pixels.
			if col%37 == 0 && row%11 == 0 {
				v = math.NaN()
			}
			g.Set(col, row, v)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := source.WriteASCIIGrid(f, g); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
