package arena

// DefaultObstacles returns a small symmetric set of static rect colliders
// scaled to the world bounds: a center block and four inset side walls,
// enough to exercise collision resolution and projectile bounce/explode
// without carving the arena into unreachable pockets.
func DefaultObstacles(bounds Rect) []Obstacle {
	w, h := bounds.W, bounds.H
	cx, cy := bounds.X+w/2, bounds.Y+h/2

	centerW, centerH := w*0.08, h*0.12
	sideW, sideH := w*0.03, h*0.22

	return []Obstacle{
		{Rect{X: cx - centerW/2, Y: cy - centerH/2, W: centerW, H: centerH}},
		{Rect{X: bounds.X + w*0.18, Y: cy - sideH/2, W: sideW, H: sideH}},
		{Rect{X: bounds.X + w*0.82 - sideW, Y: cy - sideH/2, W: sideW, H: sideH}},
		{Rect{X: cx - sideH/2, Y: bounds.Y + h*0.18, W: sideH, H: sideW}},
		{Rect{X: cx - sideH/2, Y: bounds.Y + h*0.82 - sideW, W: sideH, H: sideW}},
	}
}
