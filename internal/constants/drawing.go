package constants

import "time"

// Drawing tools.
const (
	ToolDraw  = "draw"
	ToolErase = "erase"
)

// Rate-limited action kinds.
const (
	RateDrawPixel   = "draw_pixel"
	RateDrawStroke  = "draw_stroke"
	RateClearCanvas = "clear_canvas"
)

const (
	// BlankColor fills a fresh or cleared canvas and replaces erased cells.
	BlankColor = "#000000"

	MinBrushSize = 1
	MaxBrushSize = 10

	DefaultSessionIdleTimeout = 5 * time.Minute
	DefaultSessionSweep       = time.Minute
	DefaultRateLimitSweep     = 5 * time.Minute
)
