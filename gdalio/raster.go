package gdalio

import (
	"github.com/wgdzlh/aquaprep"
	"github.com/wgdzlh/aquaprep/log"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type sceneRaster struct {
	ds     gdal.Dataset
	meta   aquaprep.RasterMeta
	path   string
	logTag string
}

// 打开Tif，读取尺寸、波段数与地理参考
func (g *GdalToolbox) OpenRaster(tif string) (r aquaprep.RasterReader, err error) {
	ds, err := gdal.Open(tif, gdal.ReadOnly)
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = errors.Wrapf(aquaprep.ErrInvalidTif, "open %s: %v", tif, err)
		return
	}
	meta := aquaprep.RasterMeta{
		Width:      ds.RasterXSize(),
		Height:     ds.RasterYSize(),
		Bands:      ds.RasterCount(),
		Projection: ds.Projection(),
		Transform:  ds.GeoTransform(),
	}
	if meta.Width == 0 || meta.Height == 0 || meta.Bands == 0 {
		ds.Close()
		err = errors.Wrapf(aquaprep.ErrWrongTif, "%s is empty", tif)
		return
	}
	srid, e := g.getSrid(meta.Projection)
	if e != nil {
		log.Warn(g.logTag+"unknown srid of tif", zap.String("tif", tif))
	}
	log.Info(g.logTag+"open tif", zap.String("tif", tif), zap.Int("width", meta.Width), zap.Int("height", meta.Height),
		zap.Int("bands", meta.Bands), zap.Int("srid", srid), zap.String("dt", ds.RasterBand(1).RasterDataType().Name()))
	r = &sceneRaster{ds: ds, meta: meta, path: tif, logTag: g.logTag}
	return
}

func (s *sceneRaster) Meta() aquaprep.RasterMeta {
	return s.meta
}

// 按窗口读取指定波段（从1开始），GDAL负责转换为uint16
func (s *sceneRaster) ReadWindow(bands []int, w aquaprep.Window) (buf [][]uint16, err error) {
	if w.RowStart < 0 || w.ColStart < 0 || w.RowEnd > s.meta.Height || w.ColEnd > s.meta.Width || w.Height() <= 0 || w.Width() <= 0 {
		err = errors.Wrapf(aquaprep.ErrWrongWindow, "%s in %dx%d", w, s.meta.Width, s.meta.Height)
		return
	}
	x, y := w.Width(), w.Height()
	buf = make([][]uint16, len(bands))
	for i, b := range bands {
		if b < 1 || b > s.meta.Bands {
			err = errors.Wrapf(aquaprep.ErrWrongTif, "band %d of %d", b, s.meta.Bands)
			return
		}
		buf[i] = make([]uint16, x*y)
		if err = s.ds.RasterBand(b).IO(gdal.Read, w.ColStart, w.RowStart, x, y, buf[i], x, y, 0, 0); err != nil {
			log.Error(s.logTag+"read tif band failed", zap.String("tif", s.path), zap.Int("band", b), zap.Error(err))
			err = errors.Wrapf(aquaprep.ErrTifReadFailed, "band %d %s: %v", b, w, err)
			return
		}
	}
	return
}

func (s *sceneRaster) Close() {
	s.ds.Close()
}

func (g *GdalToolbox) createTif(path string, meta aquaprep.RasterMeta, dt gdal.DataType) (ds gdal.Dataset, err error) {
	driver, err := g.driver(GTIFF_DRIVER)
	if err != nil {
		return
	}
	ds = driver.Create(path, meta.Width, meta.Height, meta.Bands, dt, g.tifOpts)
	if ds == emptyDataset {
		err = errors.Wrapf(aquaprep.ErrGdalDriverCreate, "create %s", path)
		return
	}
	if meta.Projection != "" {
		if err = ds.SetProjection(meta.Projection); err != nil {
			ds.Close()
			err = errors.Wrapf(aquaprep.ErrTifWriteFailed, "set projection %s: %v", path, err)
			return
		}
	}
	if err = ds.SetGeoTransform(meta.Transform); err != nil {
		ds.Close()
		err = errors.Wrapf(aquaprep.ErrTifWriteFailed, "set geotransform %s: %v", path, err)
	}
	return
}

func checkBands[T uint8 | uint16](meta aquaprep.RasterMeta, bands [][]T) error {
	if len(bands) != meta.Bands {
		return errors.Wrapf(aquaprep.ErrTifWriteFailed, "got %d bands, meta says %d", len(bands), meta.Bands)
	}
	for i, b := range bands {
		if len(b) != meta.Width*meta.Height {
			return errors.Wrapf(aquaprep.ErrTifWriteFailed, "band %d has %d pixels, want %d", i+1, len(b), meta.Width*meta.Height)
		}
	}
	return nil
}

func writeBands[T uint8 | uint16](ds gdal.Dataset, width, height int, bands [][]T) (err error) {
	for i, b := range bands {
		if err = ds.RasterBand(i+1).IO(gdal.Write, 0, 0, width, height, b, width, height, 0, 0); err != nil {
			err = errors.Wrapf(aquaprep.ErrTifWriteFailed, "band %d: %v", i+1, err)
			return
		}
	}
	return
}

// 写出uint16多波段Tif
func (g *GdalToolbox) WriteUint16Tif(path string, meta aquaprep.RasterMeta, bands [][]uint16) (err error) {
	if err = checkBands(meta, bands); err != nil {
		return
	}
	ds, err := g.createTif(path, meta, gdal.UInt16)
	if err != nil {
		return
	}
	defer ds.Close()
	if err = writeBands(ds, meta.Width, meta.Height, bands); err != nil {
		log.Error(g.logTag+"write tif failed", zap.String("tif", path), zap.Error(err))
	}
	return
}

// 写出uint8多波段Tif
func (g *GdalToolbox) WriteByteTif(path string, meta aquaprep.RasterMeta, bands [][]uint8) (err error) {
	if err = checkBands(meta, bands); err != nil {
		return
	}
	ds, err := g.createTif(path, meta, gdal.Byte)
	if err != nil {
		return
	}
	defer ds.Close()
	if err = writeBands(ds, meta.Width, meta.Height, bands); err != nil {
		log.Error(g.logTag+"write tif failed", zap.String("tif", path), zap.Error(err))
	}
	return
}

// PNG驱动不支持Create，先写入内存数据集再CreateCopy
func (g *GdalToolbox) WritePng(path string, width, height int, bands [][]uint8) (err error) {
	meta := aquaprep.RasterMeta{Width: width, Height: height, Bands: len(bands)}
	if err = checkBands(meta, bands); err != nil {
		return
	}
	memDriver, err := g.driver(MEM_DRIVER)
	if err != nil {
		return
	}
	pngDriver, err := g.driver(PNG_DRIVER)
	if err != nil {
		return
	}
	mds := memDriver.Create("", width, height, len(bands), gdal.Byte, nil)
	if mds == emptyDataset {
		err = errors.Wrap(aquaprep.ErrGdalDriverCreate, "create mem dataset")
		return
	}
	defer mds.Close()
	if err = writeBands(mds, width, height, bands); err != nil {
		return
	}
	ods := pngDriver.CreateCopy(path, mds, 0, nil, nil, nil)
	if ods == emptyDataset {
		log.Error(g.logTag+"create png failed", zap.String("png", path))
		err = errors.Wrapf(aquaprep.ErrGdalDriverCreate, "create %s", path)
		return
	}
	ods.Close()
	return
}
