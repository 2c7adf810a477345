package tui

import (
	"testing"

	"github.com/csheth/magnifier/internal/geom"
)

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name   string
		width  int
		height int
		cols   int
		rows   int
	}{
		{name: "standard", width: 80, height: 30, cols: 80, rows: 23},
		{name: "wide", width: 200, height: 60, cols: 200, rows: 53},
		{name: "tiny", width: 10, height: 8, cols: minViewportWidth, rows: minViewportHeight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.cols != tc.cols {
				t.Fatalf("cols mismatch: got %d want %d", layout.cols, tc.cols)
			}
			if layout.rows != tc.rows {
				t.Fatalf("rows mismatch: got %d want %d", layout.rows, tc.rows)
			}
			want := geom.Size{Width: float64(tc.cols), Height: float64(tc.rows * 2)}
			if got := layout.Screen(); got != want {
				t.Fatalf("screen mismatch: got %+v want %+v", got, want)
			}
		})
	}
}

func TestPageLayoutToScreen(t *testing.T) {
	layout := newPageLayout()
	layout.Update(80, 30)

	cases := []struct {
		name   string
		x, y   int
		want   geom.Point
		inside bool
	}{
		{name: "first cell", x: 0, y: 1, want: geom.Point{X: 0.5, Y: 1}, inside: true},
		{name: "later cell", x: 10, y: 3, want: geom.Point{X: 10.5, Y: 5}, inside: true},
		{name: "header", x: 5, y: 0},
		{name: "status bar", x: 5, y: 24},
		{name: "right of view", x: 80, y: 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, inside := layout.ToScreen(tc.x, tc.y)
			if inside != tc.inside {
				t.Fatalf("inside = %v, want %v", inside, tc.inside)
			}
			if inside && got != tc.want {
				t.Fatalf("point = %+v, want %+v", got, tc.want)
			}
		})
	}
}
