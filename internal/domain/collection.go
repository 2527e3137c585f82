package domain

import (
	"sort"
	"time"
)

// RasterCollection is an ordered-by-time sequence of raster images. Every
// operation returns a new collection; a collection handed to a consumer can
// never be changed underneath it.
type RasterCollection struct {
	images []RasterImage
}

// NewRasterCollection copies the images and sorts them by timestamp.
func NewRasterCollection(images ...RasterImage) RasterCollection {
	out := make([]RasterImage, len(images))
	copy(out, images)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return RasterCollection{images: out}
}

// Len returns the number of images.
func (c RasterCollection) Len() int {
	return len(c.images)
}

// Images returns the images in time order. The slice is a copy.
func (c RasterCollection) Images() []RasterImage {
	out := make([]RasterImage, len(c.images))
	copy(out, c.images)
	return out
}

// FilterDate keeps images with timestamps in [start, end): start inclusive,
// end exclusive.
func (c RasterCollection) FilterDate(start, end time.Time) RasterCollection {
	var kept []RasterImage
	for _, img := range c.images {
		if !img.Timestamp.Before(start) && img.Timestamp.Before(end) {
			kept = append(kept, img)
		}
	}
	return RasterCollection{images: kept}
}

// FilterBounds keeps images whose extent intersects b.
func (c RasterCollection) FilterBounds(b Bounds) RasterCollection {
	var kept []RasterImage
	for _, img := range c.images {
		if img.Bounds().Intersects(b) {
			kept = append(kept, img)
		}
	}
	return RasterCollection{images: kept}
}

// Select projects every image to the named bands. A band missing from any
// image fails the whole selection with a BandNotFoundError: a partial
// projection would silently break composite shapes downstream.
func (c RasterCollection) Select(names ...string) (RasterCollection, error) {
	out := make([]RasterImage, len(c.images))
	for i, img := range c.images {
		bands := make(map[string]*Grid, len(names))
		for _, name := range names {
			g, err := img.Band(name)
			if err != nil {
				return RasterCollection{}, err
			}
			bands[name] = g
		}
		out[i] = RasterImage{Timestamp: img.Timestamp, Bands: bands}
	}
	return RasterCollection{images: out}, nil
}

// Map applies fn to a deep copy of every image and returns the results as a
// new collection. The source collection is never mutated even when fn edits
// its argument in place.
func (c RasterCollection) Map(fn func(RasterImage) RasterImage) RasterCollection {
	out := make([]RasterImage, len(c.images))
	for i, img := range c.images {
		out[i] = fn(img.clone())
	}
	return RasterCollection{images: out}
}

// Rescale applies the linear transform v*factor+offset to the named band of
// every image, exactly once per image. Used for unit conversion (e.g. the
// vegetation index's 0.0001 integer scaling) before temporal reduction.
func (c RasterCollection) Rescale(band string, factor, offset float64) (RasterCollection, error) {
	for _, img := range c.images {
		if _, err := img.Band(band); err != nil {
			return RasterCollection{}, err
		}
	}
	return c.Map(func(img RasterImage) RasterImage {
		g := img.Bands[band]
		for i, v := range g.Values {
			g.Values[i] = v*factor + offset
		}
		return img
	}), nil
}
