package gdalio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wgdzlh/aquaprep"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
)

func utmWkt(t *testing.T) string {
	t.Helper()
	sp := gdal.CreateSpatialReference("")
	defer sp.Destroy()
	if err := sp.FromEPSG(32650); err != nil {
		t.Fatal(err)
	}
	wkt, err := sp.ToWKT()
	if err != nil {
		t.Fatal(err)
	}
	return wkt
}

func TestUint16TifRoundTrip(t *testing.T) {
	g := NewGdalToolbox()
	path := filepath.Join(t.TempDir(), "20180523_024337_0f2b_3B_AnalyticMS_SR.tif")
	meta := aquaprep.RasterMeta{
		Width:      40,
		Height:     30,
		Bands:      4,
		Projection: utmWkt(t),
		Transform:  aquaprep.GeoTransform{500000, 3, 0, 2500000, 0, -3},
	}
	bands := make([][]uint16, meta.Bands)
	for b := range bands {
		bands[b] = make([]uint16, meta.Width*meta.Height)
		for i := range bands[b] {
			bands[b][i] = uint16(1000*(b+1) + i)
		}
	}
	if err := g.WriteUint16Tif(path, meta, bands); err != nil {
		t.Fatal(err)
	}

	r, err := g.OpenRaster(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got := r.Meta()
	if got.Width != meta.Width || got.Height != meta.Height || got.Bands != meta.Bands || got.Transform != meta.Transform {
		t.Fatalf("meta %+v, want %+v", got, meta)
	}
	if srid, err := g.getSrid(got.Projection); err != nil || srid != 32650 {
		t.Fatalf("srid %d: %v", srid, err)
	}

	w := aquaprep.Window{RowStart: 10, RowEnd: 20, ColStart: 5, ColEnd: 25}
	data, err := r.ReadWindow([]int{4, 1}, w)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range []int{4, 1} {
		for row := 0; row < w.Height(); row++ {
			for col := 0; col < w.Width(); col++ {
				want := bands[b-1][(row+w.RowStart)*meta.Width+col+w.ColStart]
				if v := data[i][row*w.Width()+col]; v != want {
					t.Fatalf("band %d (%d,%d) = %d, want %d", b, row, col, v, want)
				}
			}
		}
	}

	if _, err = r.ReadWindow([]int{1}, aquaprep.Window{RowStart: 20, RowEnd: 40, ColStart: 0, ColEnd: 10}); !errors.Is(err, aquaprep.ErrWrongWindow) {
		t.Fatalf("got %v, want ErrWrongWindow", err)
	}
	if _, err = r.ReadWindow([]int{5}, w); !errors.Is(err, aquaprep.ErrWrongTif) {
		t.Fatalf("got %v, want ErrWrongTif", err)
	}
}

func TestWriteByteTif(t *testing.T) {
	g := NewGdalToolbox()
	path := filepath.Join(t.TempDir(), "chip_cage_mask.tif")
	meta := aquaprep.RasterMeta{Width: 8, Height: 8, Bands: 1, Transform: aquaprep.GeoTransform{0, 1, 0, 8, 0, -1}}
	mask := make([]uint8, 64)
	for i := 0; i < 64; i += 3 {
		mask[i] = 1
	}
	if err := g.WriteByteTif(path, meta, [][]uint8{mask}); err != nil {
		t.Fatal(err)
	}
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	band := ds.RasterBand(1)
	if ds.RasterCount() != 1 || band.RasterDataType() != gdal.Byte {
		t.Fatalf("got %d bands of %s", ds.RasterCount(), band.RasterDataType().Name())
	}
	buf := make([]uint8, 64)
	if err = band.IO(gdal.Read, 0, 0, 8, 8, buf, 8, 8, 0, 0); err != nil {
		t.Fatal(err)
	}
	for i := range buf {
		if buf[i] != mask[i] {
			t.Fatalf("pixel %d = %d, want %d", i, buf[i], mask[i])
		}
	}
	if _, err = os.Stat(path + ".aux.xml"); !os.IsNotExist(err) {
		t.Fatal("aux.xml side file written")
	}
}

func TestWritePng(t *testing.T) {
	g := NewGdalToolbox()
	path := filepath.Join(t.TempDir(), "chip.png")
	rgb := make([][]uint8, 3)
	for b := range rgb {
		rgb[b] = make([]uint8, 16*12)
		for i := range rgb[b] {
			rgb[b][i] = uint8(i + b*50)
		}
	}
	if err := g.WritePng(path, 16, 12, rgb); err != nil {
		t.Fatal(err)
	}
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	if ds.RasterXSize() != 16 || ds.RasterYSize() != 12 || ds.RasterCount() != 3 {
		t.Fatalf("png is %dx%dx%d", ds.RasterXSize(), ds.RasterYSize(), ds.RasterCount())
	}
	buf := make([]uint8, 16*12)
	if err = ds.RasterBand(2).IO(gdal.Read, 0, 0, 16, 12, buf, 16, 12, 0, 0); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 50 || buf[191] != uint8(191+50) {
		t.Fatalf("green channel %d..%d", buf[0], buf[191])
	}

	if err = g.WritePng(path, 16, 13, rgb); !errors.Is(err, aquaprep.ErrTifWriteFailed) {
		t.Fatalf("got %v, want size mismatch", err)
	}
}

func TestOpenRasterMissing(t *testing.T) {
	_, err := NewGdalToolbox().OpenRaster(filepath.Join(t.TempDir(), "none.tif"))
	if !errors.Is(err, aquaprep.ErrInvalidTif) {
		t.Fatalf("got %v, want ErrInvalidTif", err)
	}
}

func TestGetSridUnknown(t *testing.T) {
	g := NewGdalToolbox()
	if srid, err := g.getSrid(""); srid != 0 || err != nil {
		t.Fatalf("empty wkt: %d %v", srid, err)
	}
}
