package components

import (
	"strings"

	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/geo"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

const (
	launchMark  = "◆"
	burstMark   = "✱"
	landingMark = "▼"
	trackMark   = "·"
)

// Plot draws finished paths on a character grid. It implements
// engine.Canvas; the engine decides which paths are dimmed.
type Plot struct {
	paths  []*engine.Path
	dimmed map[*engine.Path]bool
	box    geo.Box
	fitted bool
}

// NewPlot creates an empty plot.
func NewPlot() *Plot {
	return &Plot{dimmed: make(map[*engine.Path]bool)}
}

// Attach implements engine.Canvas.
func (p *Plot) Attach(path *engine.Path) {
	for _, existing := range p.paths {
		if existing == path {
			return
		}
	}
	p.paths = append(p.paths, path)
	p.dimmed[path] = path.Dimmed()
}

// Detach implements engine.Canvas.
func (p *Plot) Detach(path *engine.Path) {
	for i, existing := range p.paths {
		if existing == path {
			p.paths = append(p.paths[:i], p.paths[i+1:]...)
			break
		}
	}
	delete(p.dimmed, path)
	if len(p.paths) == 0 {
		p.fitted = false
	}
}

// SetDimmed implements engine.Canvas.
func (p *Plot) SetDimmed(path *engine.Path, dimmed bool) {
	if _, ok := p.dimmed[path]; ok {
		p.dimmed[path] = dimmed
	}
}

// FitBounds implements engine.Canvas.
func (p *Plot) FitBounds(box geo.Box) {
	p.box = box
	p.fitted = true
}

// Len returns the number of attached paths.
func (p *Plot) Len() int {
	return len(p.paths)
}

// Bounds returns the fitted box, if any.
func (p *Plot) Bounds() (geo.Box, bool) {
	return p.box, p.fitted
}

// Dimmed reports whether an attached path is drawn faded.
func (p *Plot) Dimmed(path *engine.Path) bool {
	return p.dimmed[path]
}

// View renders the plot. Dimmed paths are drawn first so the selected one
// stays on top.
func (p *Plot) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if !p.fitted || len(p.paths) == 0 {
		return styles.SubtleStyle.Render("(no paths yet)")
	}

	grid := make([][]string, height)
	for i := range grid {
		grid[i] = make([]string, width)
		for j := range grid[i] {
			grid[i][j] = " "
		}
	}

	var highlighted []*engine.Path
	for _, path := range p.paths {
		if p.dimmed[path] {
			p.draw(grid, path, styles.DimmedStyle.Render)
		} else {
			highlighted = append(highlighted, path)
		}
	}
	for _, path := range highlighted {
		p.draw(grid, path, styles.SelectedStyle.Render)
	}

	rows := make([]string, height)
	for i, row := range grid {
		rows[i] = strings.Join(row, "")
	}
	return strings.Join(rows, "\n")
}

func (p *Plot) draw(grid [][]string, path *engine.Path, render func(...string) string) {
	for _, pt := range path.Points {
		p.set(grid, pt.LatLng(), render(trackMark))
	}
	p.set(grid, path.Launch.LatLng(), render(launchMark))
	p.set(grid, path.Burst.LatLng(), render(burstMark))
	p.set(grid, path.Landing.LatLng(), render(landingMark))
}

func (p *Plot) set(grid [][]string, pos geo.LatLng, cell string) {
	row, col, ok := p.project(pos, len(grid[0]), len(grid))
	if !ok {
		return
	}
	grid[row][col] = cell
}

// project maps a coordinate to a cell. North is up.
func (p *Plot) project(pos geo.LatLng, width, height int) (row, col int, ok bool) {
	if !p.box.Contains(pos) {
		return 0, 0, false
	}

	lng := geo.NormalizeLongitude(pos.Lng)
	if p.box.NorthEast.Lng > 180 && lng < p.box.SouthWest.Lng {
		lng += 360
	}

	spanLat := p.box.NorthEast.Lat - p.box.SouthWest.Lat
	spanLng := p.box.NorthEast.Lng - p.box.SouthWest.Lng

	col = (width - 1) / 2
	if spanLng > 0 {
		col = int((lng - p.box.SouthWest.Lng) / spanLng * float64(width-1))
	}
	row = (height - 1) / 2
	if spanLat > 0 {
		row = int((p.box.NorthEast.Lat - pos.Lat) / spanLat * float64(height-1))
	}
	return row, col, true
}
