package aquaprep

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

type FillRule int

const (
	FillEvenOdd FillRule = iota
	FillNonZero
)

func (r FillRule) String() string {
	switch r {
	case FillNonZero:
		return "nonzero"
	default:
		return "evenodd"
	}
}

func ParseFillRule(s string) (r FillRule, err error) {
	switch s {
	case "", "evenodd":
		r = FillEvenOdd
	case "nonzero":
		r = FillNonZero
	default:
		err = errors.Wrapf(ErrInvalidConfig, "fill rule %q", s)
	}
	return
}

// 单波段二值掩膜
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

func (m *Mask) At(row, col int) uint8 {
	return m.Pix[row*m.Width+col]
}

// 值非零的像素数
func (m *Mask) Count() (n int) {
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return
}

type crossing struct {
	x   float64
	dir int
}

// 扫描线填充：采样像素中心(col+0.5, row+0.5)，与gdal_rasterize默认规则一致
// 覆盖的像素置为MASK_VALUE，多个形状取并集
func RasterizeShape(m *Mask, s Shape, rule FillRule) {
	rings := s.Rings()
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, ring := range rings {
		for _, p := range ring {
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minY, 0) {
		return
	}
	rowStart := clampIndex(math.Ceil(minY-0.5), m.Height)
	rowEnd := clampIndex(math.Ceil(maxY-0.5), m.Height)
	var xs []crossing
	for row := rowStart; row < rowEnd; row++ {
		y := float64(row) + 0.5
		xs = xs[:0]
		for _, ring := range rings {
			n := len(ring)
			for i := 0; i < n; i++ {
				p0, p1 := ring[i], ring[(i+1)%n]
				if p0.Y == p1.Y {
					continue
				}
				dir := 1
				if p1.Y < p0.Y {
					dir = -1
				}
				if (p0.Y <= y && y < p1.Y) || (p1.Y <= y && y < p0.Y) {
					x := p0.X + (y-p0.Y)*(p1.X-p0.X)/(p1.Y-p0.Y)
					xs = append(xs, crossing{x, dir})
				}
			}
		}
		if len(xs) < 2 {
			continue
		}
		sort.Slice(xs, func(i, j int) bool { return xs[i].x < xs[j].x })
		switch rule {
		case FillNonZero:
			winding := 0
			var start float64
			for _, c := range xs {
				prev := winding
				winding += c.dir
				if prev == 0 && winding != 0 {
					start = c.x
				} else if prev != 0 && winding == 0 {
					m.fillSpan(row, start, c.x)
				}
			}
		default:
			for i := 0; i+1 < len(xs); i += 2 {
				m.fillSpan(row, xs[i].x, xs[i+1].x)
			}
		}
	}
}

// 先在浮点域截断到[0, limit]再转int，超出int范围的坐标转换结果未定义
func clampIndex(v float64, limit int) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(limit) {
		return limit
	}
	return int(v)
}

// 填充中心落在[xa, xb)内的像素
func (m *Mask) fillSpan(row int, xa, xb float64) {
	c0 := clampIndex(math.Ceil(xa-0.5), m.Width)
	c1 := clampIndex(math.Ceil(xb-0.5), m.Width)
	line := m.Pix[row*m.Width : (row+1)*m.Width]
	for c := c0; c < c1; c++ {
		line[c] = MASK_VALUE
	}
}

// 将一组形状栅格化为width*height的掩膜
func RasterizeShapes(width, height int, shapes []Shape, rule FillRule) *Mask {
	m := NewMask(width, height)
	for _, s := range shapes {
		RasterizeShape(m, s, rule)
	}
	return m
}
