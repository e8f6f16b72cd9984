package main

import "testing"

func TestContactAxisCoincident(t *testing.T) {
	dist, nx, ny := contactAxis(3, 4, 3, 4)
	if dist != 0 || nx != 1 || ny != 0 {
		t.Errorf("coincident centres: got dist=%v axis=(%v,%v), want 0 (1,0)", dist, nx, ny)
	}

	dist, nx, ny = contactAxis(0, 0, 3, 4)
	if dist != 5 || nx != 0.6 || ny != 0.8 {
		t.Errorf("got dist=%v axis=(%v,%v)", dist, nx, ny)
	}
}

func TestSeparatePlayers(t *testing.T) {
	a := &Player{X: 100, Y: 100, VX: 4}
	b := &Player{X: 120, Y: 100, VX: -2}

	if !separatePlayers(a, b, 15, 0.5) {
		t.Fatal("players 20 apart with radius 15 overlap")
	}
	if a.X != 95 || b.X != 125 {
		t.Errorf("positions after separation: a=%v b=%v, want 95 and 125", a.X, b.X)
	}
	if a.VX != -1 || b.VX != 2 {
		t.Errorf("velocities should swap at half strength: a=%v b=%v", a.VX, b.VX)
	}

	if separatePlayers(a, b, 15, 0.5) {
		t.Error("touching players must not be separated again")
	}
}
