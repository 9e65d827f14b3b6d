package aquaprep

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/wgdzlh/aquaprep/log"
	"github.com/wgdzlh/aquaprep/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type MaskBuilder struct {
	rio    RasterIO
	cfg    Config
	rule   FillRule
	logTag string
}

func NewMaskBuilder(rio RasterIO, cfg Config) (b *MaskBuilder, err error) {
	rule, err := ParseFillRule(cfg.FillRule)
	if err != nil {
		return
	}
	if cfg.ClassAttr == "" {
		cfg.ClassAttr = DefaultClassAttr
	}
	b = &MaskBuilder{
		rio:    rio,
		cfg:    cfg,
		rule:   rule,
		logTag: "MaskBuilder:",
	}
	return
}

// prepped_root/<chip_id>/image/<chip_id>.tif
func ChipImagePath(preppedRoot, chipID string) string {
	return filepath.Join(preppedRoot, chipID, IMAGE_DIR, chipID+FILE_EXT_TIF)
}

// prepped_root/<chip_id>/class_masks/<chip_id>_<class>_mask.tif
func ClassMaskPath(preppedRoot, chipID, class string) string {
	return filepath.Join(preppedRoot, chipID, MASKS_DIR, chipID+"_"+utils.PurifyLabel(class)+MASK_SUFFIX+FILE_EXT_TIF)
}

// 将标注导出文件中的多边形按类别栅格化为各切片的掩膜
// 导出文件无法读取或prepped_root不存在时返回错误，单张切片的失败只记入结果
func (b *MaskBuilder) BuildMasks(ctx context.Context, annotationPath, preppedRoot string) (ret *BatchResult, err error) {
	if !utils.IsDir(preppedRoot) {
		err = errors.Wrapf(ErrRootNotFound, "prepped root %s", preppedRoot)
		return
	}
	anns, err := LoadAnnotations(annotationPath)
	if err != nil {
		log.Error(b.logTag+"load annotations failed", zap.String("file", annotationPath), zap.Error(err))
		return
	}
	anns, dups := uniqueChips(anns)
	log.Info(b.logTag+"start build masks", zap.String("file", annotationPath), zap.Int("records", len(anns)),
		zap.Int("duplicates", len(dups)))
	ret = &BatchResult{}
	for _, d := range dups {
		log.Warn(b.logTag+"chip annotated by more than one record, later record skipped", zap.String("key", d.Key),
			zap.String("chip", d.Filename))
		ret.skip(d.Key)
	}
	n := runLimited(ctx, b.cfg.Workers, len(anns), func(i int) {
		a := anns[i]
		unit := a.Filename
		if unit == "" {
			unit = a.Key
		}
		if a.Err != nil {
			log.Error(b.logTag+"malformed annotation record", zap.String("key", a.Key), zap.Error(a.Err))
			ret.fail(unit, a.Err)
			return
		}
		classes, e := b.BuildChipMasks(a, preppedRoot)
		switch {
		case e == nil:
			log.Info(b.logTag+"chip masks written", zap.String("chip", unit), zap.Strings("classes", classes))
			ret.done(unit)
		case errors.Is(e, ErrMissingClass):
			log.Warn(b.logTag+"missing class assignment, chip skipped", zap.String("chip", unit), zap.Error(e))
			ret.skip(unit)
		default:
			log.Error(b.logTag+"build chip masks failed", zap.String("chip", unit), zap.Error(e))
			ret.fail(unit, e)
		}
	})
	if n < len(anns) {
		log.Warn(b.logTag+"batch interrupted", zap.Int("dispatched", n), zap.Int("records", len(anns)), zap.Error(ctx.Err()))
		ret.fail(annotationPath, errors.Wrap(ctx.Err(), "build masks"))
	}
	log.Info(b.logTag+"masks built", zap.Int("done", len(ret.Done)), zap.Int("skipped", len(ret.Skipped)),
		zap.Int("failed", len(ret.Failed)))
	return
}

// 同一切片（文件名去扩展名）只保留排序后的第一条记录，其余作为重复返回
// 解析失败的记录不参与去重
func uniqueChips(anns []Annotation) (uniq, dups []Annotation) {
	seen := make(map[string]struct{}, len(anns))
	for _, a := range anns {
		if a.Err != nil {
			uniq = append(uniq, a)
			continue
		}
		id := utils.GetFilenameWithoutExt(a.Filename)
		if _, ok := seen[id]; ok {
			dups = append(dups, a)
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, a)
	}
	return
}

// 类别名规整后用作文件名，不同类别不得落到同一掩膜文件
func maskLabels(groups map[string][]Shape) (names []string, err error) {
	names = make([]string, 0, len(groups))
	for class := range groups {
		names = append(names, class)
	}
	sort.Strings(names)
	owner := make(map[string]string, len(names))
	for _, class := range names {
		label := utils.PurifyLabel(class)
		if prev, ok := owner[label]; ok {
			err = errors.Wrapf(ErrClassCollision, "classes %q and %q both map to %q", prev, class, label)
			return
		}
		owner[label] = class
	}
	return
}

// 为单张切片的每个类别写出一个掩膜，返回已写出的类别（已排序）
func (b *MaskBuilder) BuildChipMasks(a Annotation, preppedRoot string) (classes []string, err error) {
	chipID := utils.GetFilenameWithoutExt(a.Filename)
	groups, err := GroupByClass(a, b.cfg.ClassAttr)
	if err != nil {
		return
	}
	names, err := maskLabels(groups)
	if err != nil {
		return
	}
	meta, err := b.chipMeta(ChipImagePath(preppedRoot, chipID))
	if err != nil {
		return
	}
	if err = utils.EnsureDirs(filepath.Join(preppedRoot, chipID, MASKS_DIR)); err != nil {
		return
	}
	maskMeta := RasterMeta{
		Width:      meta.Width,
		Height:     meta.Height,
		Bands:      1,
		Projection: meta.Projection,
		Transform:  meta.Transform,
	}
	for _, class := range names {
		m := RasterizeShapes(meta.Width, meta.Height, groups[class], b.rule)
		out := ClassMaskPath(preppedRoot, chipID, class)
		if err = b.rio.WriteByteTif(out, maskMeta, [][]uint8{m.Pix}); err != nil {
			err = errors.Wrapf(err, "write mask %s", out)
			return
		}
		log.Debug(b.logTag+"class mask written", zap.String("chip", chipID), zap.String("class", class),
			zap.Int("shapes", len(groups[class])), zap.Int("pixels", m.Count()))
		classes = append(classes, class)
	}
	return
}

// 只读取切片的尺寸与地理参考，句柄随即释放
func (b *MaskBuilder) chipMeta(tif string) (meta RasterMeta, err error) {
	src, err := b.rio.OpenRaster(tif)
	if err != nil {
		err = errors.Wrapf(err, "open chip %s", tif)
		return
	}
	meta = src.Meta()
	src.Close()
	return
}
