package gdalio

import (
	"os"
	"strconv"
	"strings"

	"github.com/wgdzlh/aquaprep"
	"github.com/wgdzlh/aquaprep/log"

	"github.com/lukeroth/gdal"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	GTIFF_DRIVER = "GTiff"
	MEM_DRIVER   = "MEM"
	PNG_DRIVER   = "PNG"

	CGCS2000_SRID = 4490
)

var (
	emptyDataset = gdal.Dataset{}

	DefaultTifOptions = []string{"COMPRESS=LZW"}

	_ aquaprep.RasterIO = (*GdalToolbox)(nil)
)

// 基于GDAL的栅格读写工具箱
type GdalToolbox struct {
	tifOpts []string
	logTag  string
}

func init() {
	// 不生成.aux.xml附属文件
	setDefaultEnv("GDAL_PAM_ENABLED", "NO")
}

func setDefaultEnv(envVar string, defaultVal string) {
	if _, ok := os.LookupEnv(envVar); !ok {
		os.Setenv(envVar, defaultVal)
	}
}

// 初始化GDAL工具箱，tifOpts为可选的GTiff创建参数（未提供的话使用LZW压缩）
func NewGdalToolbox(tifOpts ...string) *GdalToolbox {
	g := &GdalToolbox{
		tifOpts: DefaultTifOptions,
		logTag:  "GdalToolbox:",
	}
	if len(tifOpts) > 0 {
		g.tifOpts = tifOpts
	}
	return g
}

// 由坐标系WKT获取srid，无法识别时返回0
func (g *GdalToolbox) getSrid(wkt string) (srid int, err error) {
	if wkt == "" {
		return
	}
	sp := gdal.CreateSpatialReference(wkt)
	defer sp.Destroy()
	rawId, ok := sp.AttrValue("AUTHORITY", 1)
	if !ok {
		if e := sp.AutoIdentifyEPSG(); e == nil {
			rawId, ok = sp.AttrValue("AUTHORITY", 1)
		}
	}
	if !ok || rawId == "" {
		if strings.Contains(wkt, "CGCS_2000") {
			srid = CGCS2000_SRID
			return
		}
		err = errors.New("void srid")
		return
	}
	srid, err = strconv.Atoi(rawId)
	return
}

func (g *GdalToolbox) driver(name string) (d gdal.Driver, err error) {
	d, err = gdal.GetDriverByName(name)
	if err != nil {
		log.Error(g.logTag+"get driver failed", zap.String("driver", name), zap.Error(err))
		err = errors.Wrapf(aquaprep.ErrGdalDriverCreate, "driver %s: %v", name, err)
	}
	return
}
