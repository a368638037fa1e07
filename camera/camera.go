// Package camera provides a 2D camera for viewport control.
package camera

// Camera controls a viewport into the simulation plane. The plane is
// unbounded: creatures walk away from the origin along x.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom is screen pixels per world unit
	Zoom float32

	// Viewport rectangle on screen
	OriginX, OriginY     float32
	ViewportW, ViewportH float32

	// Zoom constraints, as multiples of the base zoom
	MinZoom, MaxZoom float32

	baseZoom float32
}

// New creates a camera centered on the world origin. baseZoom is the
// default number of pixels per world unit.
func New(viewportW, viewportH, baseZoom float32) *Camera {
	return &Camera{
		Zoom:      baseZoom,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   baseZoom / 8,
		MaxZoom:   baseZoom * 4,
		baseZoom:  baseZoom,
	}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.OriginX + c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.OriginY + c.ViewportH/2 + (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.OriginX-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.OriginY-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// Contains reports whether a screen point falls inside the viewport.
func (c *Camera) Contains(sx, sy float32) bool {
	return sx >= c.OriginX && sx < c.OriginX+c.ViewportW &&
		sy >= c.OriginY && sy < c.OriginY+c.ViewportH
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Place moves the viewport on screen and resizes it.
func (c *Camera) Place(originX, originY, viewportW, viewportH float32) {
	c.OriginX = originX
	c.OriginY = originY
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Follow moves the camera a fraction rate of the way towards (wx, wy).
// rate 1 snaps.
func (c *Camera) Follow(wx, wy, rate float32) {
	rate = clamp(rate, 0, 1)
	c.X += (wx - c.X) * rate
	c.Y += (wy - c.Y) * rate
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset centers the camera on (wx, wy) at the base zoom.
func (c *Camera) Reset(wx, wy float32) {
	c.X = wx
	c.Y = wy
	c.Zoom = c.baseZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
