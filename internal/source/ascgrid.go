package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lkkmills/gee/internal/domain"
)

// Manifest indexes a raster archive directory. Each variable entry lists
// the timestamped images that make up its collection, with band names
// mapped to ESRI ASCII grid files relative to the archive root.
type Manifest struct {
	Variables map[string]ManifestVariable `json:"variables"`
}

// ManifestVariable holds one variable's image list.
type ManifestVariable struct {
	Images []ManifestImage `json:"images"`
}

// ManifestImage is one observation: a timestamp plus band file paths.
type ManifestImage struct {
	Timestamp time.Time         `json:"timestamp"`
	Bands     map[string]string `json:"bands"`
}

// LoadManifest reads manifest.json from the archive directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Collection assembles the raster collection for one manifest variable,
// reading every band grid from disk.
func (m *Manifest) Collection(dir, variable string) (domain.RasterCollection, error) {
	mv, ok := m.Variables[variable]
	if !ok {
		return domain.RasterCollection{}, fmt.Errorf("manifest: unknown variable %q", variable)
	}
	images := make([]domain.RasterImage, 0, len(mv.Images))
	for _, mi := range mv.Images {
		img, err := loadImage(dir, mi)
		if err != nil {
			return domain.RasterCollection{}, fmt.Errorf("variable %q: %w", variable, err)
		}
		images = append(images, img)
	}
	return domain.NewRasterCollection(images...), nil
}

// Image assembles a single raster image for a static variable. The manifest
// entry must contain exactly one image.
func (m *Manifest) Image(dir, variable string) (domain.RasterImage, error) {
	mv, ok := m.Variables[variable]
	if !ok {
		return domain.RasterImage{}, fmt.Errorf("manifest: unknown variable %q", variable)
	}
	if len(mv.Images) != 1 {
		return domain.RasterImage{}, fmt.Errorf("manifest: variable %q: static variable needs exactly one image, got %d", variable, len(mv.Images))
	}
	img, err := loadImage(dir, mv.Images[0])
	if err != nil {
		return domain.RasterImage{}, fmt.Errorf("variable %q: %w", variable, err)
	}
	return img, nil
}

func loadImage(dir string, mi ManifestImage) (domain.RasterImage, error) {
	bands := make(map[string]*domain.Grid, len(mi.Bands))
	names := make([]string, 0, len(mi.Bands))
	for name := range mi.Bands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g, err := ReadASCIIGridFile(filepath.Join(dir, mi.Bands[name]))
		if err != nil {
			return domain.RasterImage{}, fmt.Errorf("band %q: %w", name, err)
		}
		bands[name] = g
	}
	return domain.RasterImage{Timestamp: mi.Timestamp.UTC(), Bands: bands}, nil
}

// ReadASCIIGridFile parses the ESRI ASCII grid at path.
func ReadASCIIGridFile(path string) (*domain.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := ParseASCIIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// ParseASCIIGrid reads an ESRI ASCII grid: a six-line header (ncols, nrows,
// xllcorner, yllcorner, cellsize, nodata_value) followed by row-major values,
// north row first. Nodata values become NaN.
func ParseASCIIGrid(r io.Reader) (*domain.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var nodata float64 = -9999
	hasNodata := false
	for len(header) < 5 {
		key, err := nextWord(sc)
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		key = strings.ToLower(key)
		valWord, err := nextWord(sc)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		val, err := strconv.ParseFloat(valWord, 64)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize":
			header[key] = val
		case "nodata_value":
			nodata = val
			hasNodata = true
		default:
			return nil, fmt.Errorf("header: unexpected key %q", key)
		}
	}

	// nodata_value may follow the five required keys.
	if !hasNodata {
		word, err := nextWord(sc)
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		if strings.EqualFold(word, "nodata_value") {
			valWord, err := nextWord(sc)
			if err != nil {
				return nil, fmt.Errorf("header nodata_value: %w", err)
			}
			nodata, err = strconv.ParseFloat(valWord, 64)
			if err != nil {
				return nil, fmt.Errorf("header nodata_value: %w", err)
			}
		} else {
			// Not a header key, already the first data value.
			return parseBody(sc, header, nodata, &word)
		}
	}
	return parseBody(sc, header, nodata, nil)
}

func parseBody(sc *bufio.Scanner, header map[string]float64, nodata float64, first *string) (*domain.Grid, error) {
	width := int(header["ncols"])
	height := int(header["nrows"])
	cellSize := header["cellsize"]
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("invalid cellsize %v", cellSize)
	}

	minX := header["xllcorner"]
	maxY := header["yllcorner"] + float64(height)*cellSize
	g := domain.NewGrid(minX, maxY, cellSize, width, height)

	total := width * height
	for i := 0; i < total; i++ {
		var word string
		if i == 0 && first != nil {
			word = *first
		} else {
			w, err := nextWord(sc)
			if err != nil {
				return nil, fmt.Errorf("value %d of %d: %w", i+1, total, err)
			}
			word = w
		}
		v, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		if v == nodata {
			v = math.NaN()
		}
		g.Values[i] = v
	}
	return g, nil
}

func nextWord(sc *bufio.Scanner) (string, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return sc.Text(), nil
}

// WriteASCIIGrid serializes a grid in ESRI ASCII format. NaN samples are
// written as the nodata value. Used by the fixture generator and tests.
func WriteASCIIGrid(w io.Writer, g *domain.Grid) error {
	bw := bufio.NewWriter(w)
	const nodata = -9999.0
	fmt.Fprintf(bw, "ncols %d\n", g.Width)
	fmt.Fprintf(bw, "nrows %d\n", g.Height)
	fmt.Fprintf(bw, "xllcorner %s\n", formatCoord(g.MinX))
	fmt.Fprintf(bw, "yllcorner %s\n", formatCoord(g.MaxY-float64(g.Height)*g.CellSize))
	fmt.Fprintf(bw, "cellsize %s\n", formatCoord(g.CellSize))
	fmt.Fprintf(bw, "nodata_value %g\n", nodata)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if col > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			v := g.At(col, row)
			if math.IsNaN(v) {
				v = nodata
			}
			if _, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
