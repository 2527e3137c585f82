package domain

import (
	"errors"
	"fmt"
	"math"
)

// Point is a coordinate in the raster's planar reference system.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is a closed sequence of vertices. The closing vertex may be omitted;
// containment tests treat the last vertex as connected to the first.
type Ring []Point

// Polygon is a set of rings evaluated with the even-odd rule: a point inside
// an odd number of rings is inside the polygon. This handles holes and
// multi-part (MultiPolygon) geometries with the same representation.
type Polygon struct {
	Rings []Ring
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Intersects reports whether two bounding boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// ContainsPoint reports whether the point lies within the box (inclusive).
func (b Bounds) ContainsPoint(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Bounds returns the bounding box of all rings.
func (p Polygon) Bounds() Bounds {
	b := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, ring := range p.Rings {
		for _, v := range ring {
			b.MinX = math.Min(b.MinX, v.X)
			b.MinY = math.Min(b.MinY, v.Y)
			b.MaxX = math.Max(b.MaxX, v.X)
			b.MaxY = math.Max(b.MaxY, v.Y)
		}
	}
	return b
}

// Contains reports whether pt is inside the polygon under the even-odd rule.
// A bounding-box prefilter keeps the common miss case cheap.
func (p Polygon) Contains(pt Point) bool {
	if len(p.Rings) == 0 || !p.Bounds().ContainsPoint(pt) {
		return false
	}
	inside := false
	for _, ring := range p.Rings {
		if pointInRing(pt, ring) {
			inside = !inside
		}
	}
	return inside
}

// pointInRing is the ray-casting test against a single ring.
func pointInRing(pt Point, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if ((yi > pt.Y) != (yj > pt.Y)) &&
			pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi+1e-12)+xi {
			inside = !inside
		}
	}
	return inside
}

// Validate rejects geometries the aggregation cannot reason about: empty
// polygons, rings with fewer than three distinct vertices, non-finite
// coordinates, and self-intersecting rings.
func (p Polygon) Validate() error {
	if len(p.Rings) == 0 {
		return errors.New("polygon has no rings")
	}
	for ri, ring := range p.Rings {
		ring = ring.normalized()
		if len(ring) < 3 {
			return fmt.Errorf("ring %d: fewer than 3 distinct vertices", ri)
		}
		for _, v := range ring {
			if math.IsNaN(v.X) || math.IsInf(v.X, 0) || math.IsNaN(v.Y) || math.IsInf(v.Y, 0) {
				return fmt.Errorf("ring %d: non-finite coordinate", ri)
			}
		}
		if ring.selfIntersects() {
			return fmt.Errorf("ring %d: self-intersecting", ri)
		}
	}
	return nil
}

// normalized drops an explicit closing vertex so vertex counts and edge
// iteration are uniform regardless of input convention.
func (r Ring) normalized() Ring {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// selfIntersects checks every non-adjacent edge pair for a proper crossing.
// Quadratic, which is fine for administrative boundaries at catalog load.
func (r Ring) selfIntersects() bool {
	n := len(r)
	edge := func(i int) (Point, Point) { return r[i], r[(i+1)%n] }
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges, including the wrap-around pair.
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			a1, a2 := edge(i)
			b1, b2 := edge(j)
			if segmentsCross(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports a proper intersection of segments a1a2 and b1b2.
// Touching endpoints do not count as a crossing.
func segmentsCross(a1, a2, b1, b2 Point) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
