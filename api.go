package aquaprep

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// 像素窗口，行列均为左闭右开
type Window struct {
	RowStart int
	RowEnd   int
	ColStart int
	ColEnd   int
}

func (w Window) Height() int {
	return w.RowEnd - w.RowStart
}

func (w Window) Width() int {
	return w.ColEnd - w.ColStart
}

func (w Window) String() string {
	return fmt.Sprintf("rows[%d,%d) cols[%d,%d)", w.RowStart, w.RowEnd, w.ColStart, w.ColEnd)
}

// GDAL顺序的仿射变换：x = t0 + col*t1 + row*t2, y = t3 + col*t4 + row*t5
type GeoTransform [6]float64

// 以(row, col)像素为原点的变换
func (t GeoTransform) Offset(row, col int) GeoTransform {
	r, c := float64(row), float64(col)
	return GeoTransform{
		t[0] + c*t[1] + r*t[2], t[1], t[2],
		t[3] + c*t[4] + r*t[5], t[4], t[5],
	}
}

type RasterMeta struct {
	Width      int
	Height     int
	Bands      int
	Projection string // CRS WKT
	Transform  GeoTransform
}

// 已打开的栅格，波段序号从1开始，返回按波段排列的像素
type RasterReader interface {
	Meta() RasterMeta
	ReadWindow(bands []int, w Window) ([][]uint16, error)
	Close()
}

// 栅格读写适配器
type RasterIO interface {
	OpenRaster(path string) (RasterReader, error)
	WriteUint16Tif(path string, meta RasterMeta, bands [][]uint16) error
	WriteByteTif(path string, meta RasterMeta, bands [][]uint8) error
	WritePng(path string, width, height int, bands [][]uint8) error
}

// 批处理结果，Err为各单元错误的合集
type BatchResult struct {
	Done    []string
	Skipped []string
	Failed  []string
	Err     error

	mu sync.Mutex
}

func (r *BatchResult) done(unit string) {
	r.mu.Lock()
	r.Done = append(r.Done, unit)
	r.mu.Unlock()
}

func (r *BatchResult) skip(unit string) {
	r.mu.Lock()
	r.Skipped = append(r.Skipped, unit)
	r.mu.Unlock()
}

func (r *BatchResult) fail(unit string, err error) {
	r.mu.Lock()
	r.Failed = append(r.Failed, unit)
	r.Err = multierr.Append(r.Err, err)
	r.mu.Unlock()
}
