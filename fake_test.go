package aquaprep

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

// 内存栅格，用于不依赖GDAL的测试
type memRaster struct {
	meta  RasterMeta
	bands [][]uint16
	io    *memIO
}

func (m *memRaster) Meta() RasterMeta {
	return m.meta
}

func (m *memRaster) ReadWindow(bands []int, w Window) ([][]uint16, error) {
	if w.RowStart < 0 || w.ColStart < 0 || w.RowEnd > m.meta.Height || w.ColEnd > m.meta.Width {
		return nil, ErrWrongWindow
	}
	out := make([][]uint16, len(bands))
	for i, b := range bands {
		src := m.bands[b-1]
		dst := make([]uint16, 0, w.Width()*w.Height())
		for r := w.RowStart; r < w.RowEnd; r++ {
			dst = append(dst, src[r*m.meta.Width+w.ColStart:r*m.meta.Width+w.ColEnd]...)
		}
		out[i] = dst
	}
	return out, nil
}

func (m *memRaster) Close() {
	m.io.mu.Lock()
	m.io.closed++
	m.io.mu.Unlock()
}

type memWrite struct {
	meta   RasterMeta
	uint16 [][]uint16
	bytes  [][]uint8
}

type memIO struct {
	mu      sync.Mutex
	rasters map[string]*memRaster
	writes  map[string]memWrite // 按文件名
	opened  int
	closed  int
}

func newMemIO() *memIO {
	return &memIO{
		rasters: map[string]*memRaster{},
		writes:  map[string]memWrite{},
	}
}

func (f *memIO) add(path string, meta RasterMeta, bands [][]uint16) {
	f.rasters[path] = &memRaster{meta: meta, bands: bands, io: f}
}

func (f *memIO) OpenRaster(path string) (RasterReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rasters[path]
	if !ok {
		return nil, errors.Wrap(ErrInvalidTif, path)
	}
	f.opened++
	return r, nil
}

func (f *memIO) record(path string, w memWrite) error {
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return err
	}
	f.mu.Lock()
	f.writes[filepath.Base(path)] = w
	f.mu.Unlock()
	return nil
}

func (f *memIO) WriteUint16Tif(path string, meta RasterMeta, bands [][]uint16) error {
	return f.record(path, memWrite{meta: meta, uint16: bands})
}

func (f *memIO) WriteByteTif(path string, meta RasterMeta, bands [][]uint8) error {
	return f.record(path, memWrite{meta: meta, bytes: bands})
}

func (f *memIO) WritePng(path string, width, height int, bands [][]uint8) error {
	return f.record(path, memWrite{meta: RasterMeta{Width: width, Height: height, Bands: len(bands)}, bytes: bands})
}

func (f *memIO) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// 构造size*size的4波段影像，像素值100起，不含0；zeroAt非空时将该像素第3波段置0
func syntheticScene(size int, zeroAt ...[2]int) (RasterMeta, [][]uint16) {
	meta := RasterMeta{
		Width:      size,
		Height:     size,
		Bands:      CHIP_BANDS,
		Projection: `PROJCS["WGS 84 / UTM zone 50N",AUTHORITY["EPSG","32650"]]`,
		Transform:  GeoTransform{500000, 3, 0, 2500000, 0, -3},
	}
	bands := make([][]uint16, CHIP_BANDS)
	for b := range bands {
		bands[b] = make([]uint16, size*size)
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				bands[b][r*size+c] = uint16(100 + (r+c+b*7)%50)
			}
		}
	}
	for _, p := range zeroAt {
		bands[2][p[0]*size+p[1]] = NO_DATA
	}
	return meta, bands
}

// 在dir下放置空的SR文件并登记到memIO
func placeScene(t *testing.T, f *memIO, dir, file string, meta RasterMeta, bands [][]uint16) string {
	t.Helper()
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f.add(path, meta, bands)
	return path
}

func testConfig(chipSize int) Config {
	c := DefaultConfig()
	c.ChipSize = chipSize
	return c
}
