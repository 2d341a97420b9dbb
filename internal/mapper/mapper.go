// Package mapper converts between geometries and H3 cells.
package mapper

import "github.com/paulmach/orb"

type Interface interface {
	CellForPoint(p orb.Point, res int) (string, error)
	CellsForGeometry(g orb.Geometry, res int) ([]string, error)
}
