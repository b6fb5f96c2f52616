package orchestrator

import (
	"fmt"
	"math"

	"github.com/JoelCooperPhD/sessionctl/internal/orchestrator/process"
	"github.com/JoelCooperPhD/sessionctl/internal/protocol"
)

// Layout names the bulk window-arrange strategies.
type Layout string

const (
	LayoutGrid           Layout = "grid"
	LayoutCascade        Layout = "cascade"
	LayoutTileHorizontal Layout = "tile_horizontal"
	LayoutTileVertical   Layout = "tile_vertical"
)

// cascadeOffset staggers each successive window so overlapping ones
// are still distinguishable.
const cascadeOffset = 32

// ArrangeWindows computes a target geometry per enabled, running
// module and issues set_window_geometry to each. screenW/H is
// the available desktop area.
func (o *Orchestrator) ArrangeWindows(layout Layout, screenW, screenH int) error {
	o.mu.Lock()
	targets := o.runningInstancesLocked()
	o.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	geoms := computeLayout(layout, len(targets), screenW, screenH)
	for i, inst := range targets {
		g := geoms[i]
		err := inst.proc.Send(protocol.CmdSetWindowGeom, map[string]interface{}{
			"width":  g.Width,
			"height": g.Height,
			"x":      g.X,
			"y":      g.Y,
		})
		if err != nil {
			return fmt.Errorf("arrange %q: %w", inst.Name, err)
		}
	}
	return nil
}

// computeLayout returns n geometries for the requested layout tiling
// screenW x screenH.
func computeLayout(layout Layout, n, screenW, screenH int) []process.Geometry {
	switch layout {
	case LayoutCascade:
		return cascadeLayout(n, screenW, screenH)
	case LayoutTileHorizontal:
		return tileLayout(n, screenW, screenH, true)
	case LayoutTileVertical:
		return tileLayout(n, screenW, screenH, false)
	default:
		return gridLayout(n, screenW, screenH)
	}
}

func gridLayout(n, screenW, screenH int) []process.Geometry {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))
	cellW := screenW / cols
	cellH := screenH / rows

	out := make([]process.Geometry, n)
	for i := 0; i < n; i++ {
		col := i % cols
		row := i / cols
		out[i] = process.Geometry{Width: cellW, Height: cellH, X: col * cellW, Y: row * cellH}
	}
	return out
}

func cascadeLayout(n, screenW, screenH int) []process.Geometry {
	w, h := screenW*2/3, screenH*2/3
	out := make([]process.Geometry, n)
	for i := 0; i < n; i++ {
		out[i] = process.Geometry{
			Width:  w,
			Height: h,
			X:      (i * cascadeOffset) % maxInt(1, screenW-w),
			Y:      (i * cascadeOffset) % maxInt(1, screenH-h),
		}
	}
	return out
}

func tileLayout(n, screenW, screenH int, horizontal bool) []process.Geometry {
	out := make([]process.Geometry, n)
	if horizontal {
		w := screenW / n
		for i := 0; i < n; i++ {
			out[i] = process.Geometry{Width: w, Height: screenH, X: i * w, Y: 0}
		}
		return out
	}
	h := screenH / n
	for i := 0; i < n; i++ {
		out[i] = process.Geometry{Width: screenW, Height: h, X: 0, Y: i * h}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
