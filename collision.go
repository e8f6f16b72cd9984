package main

import "math"

// contactAxis returns the distance between two centres and the unit vector
// pointing from the first to the second. Coincident centres get the +X axis
// so separation always has a direction.
func contactAxis(x1, y1, x2, y2 float64) (dist, nx, ny float64) {
	dx := x2 - x1
	dy := y2 - y1
	dist = math.Sqrt(dx*dx + dy*dy)
	if dist == 0 {
		return 0, 1, 0
	}
	return dist, dx / dist, dy / dist
}

// separatePlayers pushes two overlapping players apart, half the
// penetration each, and exchanges half their velocities. Returns false when
// they do not overlap.
func separatePlayers(a, b *Player, radius, damping float64) bool {
	dist, nx, ny := contactAxis(a.X, a.Y, b.X, b.Y)
	minDist := radius * 2
	if dist >= minDist {
		return false
	}
	half := (minDist - dist) / 2
	a.X -= nx * half
	a.Y -= ny * half
	b.X += nx * half
	b.Y += ny * half

	avx, avy := a.VX, a.VY
	a.VX = b.VX * damping
	a.VY = b.VY * damping
	b.VX = avx * damping
	b.VY = avy * damping
	return true
}
