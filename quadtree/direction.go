package quadtree

// Cardinality is one of the four cardinal directions, in the following
// order: West, North, East, South.
type Cardinality int

const (
	West Cardinality = iota
	North
	East
	South
)

// Opposite returns the direction facing c.
func (c Cardinality) Opposite() Cardinality {
	return (c + 2) % 4
}

// NextNeighbor returns the direction used to advance from one border
// neighbor to the next while walking along a border. West pairs with
// South and North pairs with East; this is not a quarter turn.
func (c Cardinality) NextNeighbor() Cardinality {
	return 3 - c
}

func (c Cardinality) String() string {
	switch c {
	case West:
		return "west"
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	default:
		return "invalid"
	}
}

// ParseCardinality converts a direction name to its Cardinality.
func ParseCardinality(s string) (Cardinality, bool) {
	switch s {
	case "west":
		return West, true
	case "north":
		return North, true
	case "east":
		return East, true
	case "south":
		return South, true
	default:
		return 0, false
	}
}

// Location is the position of a child node relative to its siblings, in
// the following order: NorthWest, NorthEast, SouthWest, SouthEast. It
// doubles as the index into a node's children array.
type Location int

const (
	NorthWest Location = iota
	NorthEast
	SouthWest
	SouthEast
)

func (l Location) String() string {
	switch l {
	case NorthWest:
		return "north_west"
	case NorthEast:
		return "north_east"
	case SouthWest:
		return "south_west"
	case SouthEast:
		return "south_east"
	default:
		return "invalid"
	}
}
