package aquaprep

import (
	"math"
	"sort"
)

// H*W*C交错排列的影像数组
type Image struct {
	Height int
	Width  int
	Bands  int
	Pix    []float64
}

func NewImage(height, width, bands int) *Image {
	return &Image{
		Height: height,
		Width:  width,
		Bands:  bands,
		Pix:    make([]float64, height*width*bands),
	}
}

// 由按波段排列的像素构建HWC影像，波段顺序即输出通道顺序
func ImageFromBands(height, width int, bands [][]uint16) *Image {
	img := NewImage(height, width, len(bands))
	for b, data := range bands {
		for i, v := range data {
			img.Pix[i*img.Bands+b] = float64(v)
		}
	}
	return img
}

func (img *Image) At(row, col, band int) float64 {
	return img.Pix[(row*img.Width+col)*img.Bands+band]
}

func (img *Image) band(b int) []float64 {
	n := img.Height * img.Width
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = img.Pix[i*img.Bands+b]
	}
	return out
}

// 转为按波段排列的8位像素，四舍五入并截断到[0,255]
func (img *Image) ToBytes() [][]uint8 {
	n := img.Height * img.Width
	out := make([][]uint8, img.Bands)
	for b := range out {
		out[b] = make([]uint8, n)
		for i := 0; i < n; i++ {
			v := math.Round(img.Pix[i*img.Bands+b])
			if v < 0 {
				v = 0
			} else if v > math.MaxUint8 {
				v = math.MaxUint8
			}
			out[b][i] = uint8(v)
		}
	}
	return out
}

// 已排序样本的百分位数，相邻秩线性插值（rank = p/100*(n-1)）
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// 逐波段按[pLow,pHigh]百分位拉伸到[lo,hi]，超出部分截断，原地修改
func StretchPercentiles(img *Image, pLow, pHigh, lo, hi float64) *Image {
	n := img.Height * img.Width
	for b := 0; b < img.Bands; b++ {
		vals := img.band(b)
		sort.Float64s(vals)
		inLo := Percentile(vals, pLow)
		inHi := Percentile(vals, pHigh)
		span := inHi - inLo
		for i := 0; i < n; i++ {
			idx := i*img.Bands + b
			if span <= 0 {
				img.Pix[idx] = lo
				continue
			}
			v := img.Pix[idx]
			if v < inLo {
				v = inLo
			} else if v > inHi {
				v = inHi
			}
			img.Pix[idx] = (v-inLo)/span*(hi-lo) + lo
		}
	}
	return img
}

// 2%-98%线性拉伸
func ContrastStretch(img *Image, lo, hi float64) *Image {
	return StretchPercentiles(img, DefaultStretchLow, DefaultStretchHigh, lo, hi)
}
