package led

// Grid geometry. The front panel is a 10x14 matrix addressed row-major
// from the top-left corner; the ambient ring takes the remaining 32
// ids. Cell ids are stable hardware addresses, not positions: id 0 is
// top-left, id 9 top-right, id 139 bottom-right, ids 140-171 wrap the
// ring.
const (
	GridWidth    = 10
	GridHeight   = 14
	FrontCount   = GridWidth * GridHeight
	AmbientCount = 32
	CellCount    = FrontCount + AmbientCount
)

// AmbientStart is the id of the first ambient ring cell.
const AmbientStart = FrontCount

// CellID returns the front-grid id at a column and row, or -1 when
// the position is off grid.
func CellID(col, row int) int {
	if col < 0 || col >= GridWidth || row < 0 || row >= GridHeight {
		return -1
	}
	return row*GridWidth + col
}

// PosOf returns the column and row of a front-grid id. ok is false
// for ambient and out-of-range ids, which have no 2-D position.
func PosOf(id int) (col, row int, ok bool) {
	if !IsFront(id) {
		return 0, 0, false
	}
	return id % GridWidth, id / GridWidth, true
}

// ValidID reports whether id addresses one of the 172 cells.
func ValidID(id int) bool {
	return id >= 0 && id < CellCount
}

// IsFront reports whether id addresses a front-grid cell.
func IsFront(id int) bool {
	return id >= 0 && id < FrontCount
}

// IsAmbient reports whether id addresses an ambient ring cell.
func IsAmbient(id int) bool {
	return id >= AmbientStart && id < CellCount
}
