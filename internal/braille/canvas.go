// Package braille draws dot graphics with Unicode braille cells. Each cell
// holds a 2x4 block of dots, so a canvas of w x h cells has 2w x 4h dots.
package braille

import "strings"

const blank = 0x2800

// dotBits maps a dot position inside a cell, [x][y], to its braille bit.
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// Canvas is a grid of braille cells.
type Canvas struct {
	cells [][]uint8
	cols  int
	rows  int
}

// NewCanvas returns an empty canvas of cols x rows cells.
func NewCanvas(cols, rows int) *Canvas {
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	cells := make([][]uint8, rows)
	for y := range cells {
		cells[y] = make([]uint8, cols)
	}
	return &Canvas{cells: cells, cols: cols, rows: rows}
}

// Cols returns the canvas width in cells.
func (c *Canvas) Cols() int { return c.cols }

// Rows returns the canvas height in cells.
func (c *Canvas) Rows() int { return c.rows }

// DotWidth returns the canvas width in dots.
func (c *Canvas) DotWidth() int { return c.cols * 2 }

// DotHeight returns the canvas height in dots.
func (c *Canvas) DotHeight() int { return c.rows * 4 }

// Set turns on the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.cols || row >= c.rows {
		return
	}
	c.cells[row][col] |= dotBits[x%2][y%4]
}

// Line draws a straight segment between two dots.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	Walk(x0, y0, x1, y1, c.Set)
}

// DashedLine draws a segment keeping on dots out of every period.
func (c *Canvas) DashedLine(x0, y0, x1, y1, period, on int) {
	if period <= 1 {
		c.Line(x0, y0, x1, y1)
		return
	}
	step := 0
	Walk(x0, y0, x1, y1, func(x, y int) {
		if step%period < on {
			c.Set(x, y)
		}
		step++
	})
}

// Mask returns the dot bits of a cell.
func (c *Canvas) Mask(col, row int) uint8 {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return 0
	}
	return c.cells[row][col]
}

// Row renders one line of cells.
func (c *Canvas) Row(row int) string {
	var b strings.Builder
	for col := 0; col < c.cols; col++ {
		b.WriteRune(Rune(c.Mask(col, row)))
	}
	return b.String()
}

// String renders the whole canvas, one line per cell row.
func (c *Canvas) String() string {
	lines := make([]string, c.rows)
	for row := range lines {
		lines[row] = c.Row(row)
	}
	return strings.Join(lines, "\n")
}

// Rune returns the braille character for a cell mask.
func Rune(mask uint8) rune {
	return rune(blank + int(mask))
}

// Walk visits every dot of the Bresenham line from (x0, y0) to (x1, y1).
func Walk(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
