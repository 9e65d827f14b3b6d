package aquaprep

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wgdzlh/aquaprep/log"
	"github.com/wgdzlh/aquaprep/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Chipper struct {
	rio    RasterIO
	cfg    Config
	logTag string
}

type ChipStats struct {
	SceneID    string
	Candidates int // 候选窗口数
	Written    int
	Incomplete int // 含noData而丢弃的窗口数
}

func NewChipper(rio RasterIO, cfg Config) *Chipper {
	return &Chipper{
		rio:    rio,
		cfg:    cfg,
		logTag: "Chipper:",
	}
}

// 在景目录中查找SR影像
func (c *Chipper) findSceneFile(sceneDir string) (tif string, err error) {
	files, err := utils.FindFilesContaining(sceneDir, c.cfg.SceneSuffix)
	if err != nil {
		err = errors.Wrapf(err, "read scene dir %s", sceneDir)
		return
	}
	if len(files) == 0 {
		// 部分订单将影像放在景目录的下级目录中
		if files, err = c.findNested(sceneDir); err != nil {
			return
		}
	}
	if len(files) == 0 {
		err = errors.Wrapf(ErrSceneNotFound, "scene dir %s", sceneDir)
		return
	}
	if len(files) > 1 {
		log.Warn(c.logTag+"multiple SR tifs in scene, using first", zap.String("dir", sceneDir), zap.Strings("files", files))
	}
	tif = files[0]
	return
}

func (c *Chipper) findNested(sceneDir string) (files []string, err error) {
	all, err := utils.ListFiles(sceneDir)
	if err != nil {
		err = errors.Wrapf(err, "walk scene dir %s", sceneDir)
		return
	}
	for _, f := range all {
		if strings.Contains(filepath.Base(f), c.cfg.SceneSuffix) {
			files = append(files, f)
		}
	}
	return
}

// 将一景影像切片写入outputRoot/<scene_id>/{chips,pngs}
// 输出先写入隐藏的临时目录，整景完成后再改名，以免中断后被误认为已处理
func (c *Chipper) ChipScene(sceneDir, outputRoot string) (stats ChipStats, err error) {
	tif, err := c.findSceneFile(sceneDir)
	if err != nil {
		return
	}
	stats.SceneID = utils.GetTokenId(tif, SCENE_ID_TOKENS)
	final := filepath.Join(outputRoot, stats.SceneID)
	if utils.IsDir(final) {
		log.Info(c.logTag+"scene already chipped", zap.String("scene", stats.SceneID))
		return
	}
	if err = utils.EnsureDirs(outputRoot); err != nil {
		return
	}
	staging, err := utils.GetStagingSubDir(outputRoot, stats.SceneID)
	if err != nil {
		err = errors.Wrapf(err, "create staging dir for %s", stats.SceneID)
		return
	}
	defer func() {
		if err != nil {
			os.RemoveAll(staging)
		}
	}()
	if err = c.chipInto(tif, staging, &stats); err != nil {
		return
	}
	if err = os.Rename(staging, final); err != nil {
		if utils.IsDir(final) { // 并发下已由其他任务完成
			log.Warn(c.logTag+"scene output appeared concurrently, dropping staged copy", zap.String("scene", stats.SceneID))
			os.RemoveAll(staging)
			err = nil
			return
		}
		err = errors.Wrapf(err, "publish scene %s", stats.SceneID)
	}
	return
}

func (c *Chipper) chipInto(tif, outDir string, stats *ChipStats) (err error) {
	chipDir := filepath.Join(outDir, CHIPS_DIR)
	pngDir := filepath.Join(outDir, PNGS_DIR)
	if err = utils.EnsureDirs(chipDir, pngDir); err != nil {
		return
	}
	src, err := c.rio.OpenRaster(tif)
	if err != nil {
		return
	}
	defer src.Close()
	meta := src.Meta()
	if meta.Bands < CHIP_BANDS {
		log.Error(c.logTag+"tif bands not enough", zap.String("tif", tif), zap.Int("bands", meta.Bands))
		err = errors.Wrapf(ErrWrongTif, "%s has %d bands, need %d", tif, meta.Bands, CHIP_BANDS)
		return
	}
	windows, err := GridWindows(meta.Height, meta.Width, c.cfg.ChipSize)
	if err != nil {
		return
	}
	stats.Candidates = len(windows)
	log.Info(c.logTag+"start chip scene", zap.String("scene", stats.SceneID), zap.Int("width", meta.Width),
		zap.Int("height", meta.Height), zap.Int("bands", meta.Bands), zap.Int("windows", len(windows)))

	bands := make([]int, CHIP_BANDS)
	for i := range bands {
		bands[i] = i + 1
	}
	var data [][]uint16
	for _, w := range windows {
		if data, err = src.ReadWindow(bands, w); err != nil {
			err = errors.Wrapf(err, "read %s %s", tif, w)
			return
		}
		if hasNoData(data, c.cfg.NoData) {
			stats.Incomplete++
			log.Debug(c.logTag+"skip incomplete window", zap.String("scene", stats.SceneID), zap.Stringer("window", w))
			continue
		}
		if err = c.writeChip(stats.SceneID, chipDir, pngDir, meta, w, data); err != nil {
			return
		}
		stats.Written++
	}
	log.Info(c.logTag+"scene chipped", zap.String("scene", stats.SceneID), zap.Int("written", stats.Written),
		zap.Int("incomplete", stats.Incomplete), zap.Int("candidates", stats.Candidates))
	return
}

// 写出一个窗口的原始4波段切片及拉伸后的RGB图
func (c *Chipper) writeChip(sceneID, chipDir, pngDir string, meta RasterMeta, w Window, data [][]uint16) (err error) {
	vis := make([][]uint16, len(c.cfg.VisBands))
	for i, b := range c.cfg.VisBands {
		vis[i] = data[b-1]
	}
	img := ImageFromBands(w.Height(), w.Width(), vis)
	StretchPercentiles(img, c.cfg.StretchLow, c.cfg.StretchHigh, VIS_MIN, VIS_MAX)
	png := filepath.Join(pngDir, utils.GetChipName(sceneID, w.RowStart, w.ColStart, FILE_EXT_PNG))
	if err = c.rio.WritePng(png, w.Width(), w.Height(), img.ToBytes()); err != nil {
		err = errors.Wrapf(err, "write png %s", png)
		return
	}

	chipMeta := RasterMeta{
		Width:      w.Width(),
		Height:     w.Height(),
		Bands:      CHIP_BANDS,
		Projection: meta.Projection,
		Transform:  meta.Transform,
	}
	if !c.cfg.KeepSceneTransform {
		chipMeta.Transform = meta.Transform.Offset(w.RowStart, w.ColStart)
	}
	chip := filepath.Join(chipDir, utils.GetChipName(sceneID, w.RowStart, w.ColStart, FILE_EXT_TIF))
	if err = c.rio.WriteUint16Tif(chip, chipMeta, data); err != nil {
		err = errors.Wrapf(err, "write chip %s", chip)
	}
	return
}
