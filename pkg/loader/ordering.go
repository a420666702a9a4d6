package loader

import (
	"sort"

	"hyperspectral/internal/models"
)

// OrderPositions returns every non-origin position in acquisition order:
//  1. i_0 folders with i >= 1, ascending by i
//  2. 0_j folders with j >= 1, ascending by j
//  3. everything else, ascending by (i, j)
//
// The origin (0, 0) is never included. The result depends only on the
// registry contents, never on map iteration order.
func OrderPositions(registry Registry) []models.Position {
	var alongI, alongJ, grid []models.Position

	for pos := range registry {
		switch {
		case pos.IsOrigin():
			continue
		case pos.J == 0 && pos.I >= 1:
			alongI = append(alongI, pos)
		case pos.I == 0 && pos.J >= 1:
			alongJ = append(alongJ, pos)
		default:
			grid = append(grid, pos)
		}
	}

	sort.Slice(alongI, func(a, b int) bool { return alongI[a].I < alongI[b].I })
	sort.Slice(alongJ, func(a, b int) bool { return alongJ[a].J < alongJ[b].J })
	sort.Slice(grid, func(a, b int) bool { return grid[a].Less(grid[b]) })

	ordered := make([]models.Position, 0, len(alongI)+len(alongJ)+len(grid))
	ordered = append(ordered, alongI...)
	ordered = append(ordered, alongJ...)
	ordered = append(ordered, grid...)
	return ordered
}

// Order returns the folder names of the registry in acquisition order.
func Order(registry Registry) []string {
	positions := OrderPositions(registry)
	names := make([]string, len(positions))
	for k, pos := range positions {
		names[k] = registry[pos]
	}
	return names
}
