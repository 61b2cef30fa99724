package quadtree

// Unit is the set of coordinate types a tree can be built over.
type Unit interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Bounds is an axis-aligned rectangle. Both axes are half-open:
// a point belongs to the rectangle when min <= coord < max.
type Bounds[S Unit] struct {
	MinX S
	MinY S
	MaxX S
	MaxY S
}

// Midpoint returns the center of the rectangle on each axis. For integer
// units the division truncates, matching how child bounds are derived.
func (b Bounds[S]) Midpoint() (S, S) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// ContainsPoint reports whether the point is inside the rectangle.
func (b Bounds[S]) ContainsPoint(x, y S) bool {
	return b.MinX <= x && x < b.MaxX && b.MinY <= y && y < b.MaxY
}

// Intersects reports whether the two rectangles share any region under
// half-open semantics. Touching edges do not intersect.
func (b Bounds[S]) Intersects(o Bounds[S]) bool {
	return b.MinX < o.MaxX && o.MinX < b.MaxX &&
		b.MinY < o.MaxY && o.MinY < b.MaxY
}

// Quadrant returns the sub-rectangle a child at the given location covers.
// The four quadrants tile the rectangle with no gap or overlap.
func (b Bounds[S]) Quadrant(l Location) Bounds[S] {
	midX, midY := b.Midpoint()

	switch l {
	case NorthWest:
		return Bounds[S]{b.MinX, b.MinY, midX, midY}
	case NorthEast:
		return Bounds[S]{midX, b.MinY, b.MaxX, midY}
	case SouthWest:
		return Bounds[S]{b.MinX, midY, midX, b.MaxY}
	default:
		return Bounds[S]{midX, midY, b.MaxX, b.MaxY}
	}
}
