package aquaprep

import (
	"context"
	"path/filepath"

	"github.com/wgdzlh/aquaprep/log"
	"github.com/wgdzlh/aquaprep/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 订单中的一景影像目录
type SceneDir struct {
	Order string
	Name  string
	Path  string
}

// 无法读取的订单目录
type OrderError struct {
	Order string
	Path  string
	Err   error
}

var listOrderDir = utils.ListSubDirs

// 遍历source_root/<order>/<scene>，按订单、景目录名排序
// 仅source_root本身不可读时返回err；单个订单目录读取失败记入broken，其余订单照常列出
func ListSceneDirs(sourceRoot string) (scenes []SceneDir, broken []OrderError, err error) {
	if !utils.IsDir(sourceRoot) {
		err = errors.Wrapf(ErrRootNotFound, "source root %s", sourceRoot)
		return
	}
	orders, err := utils.ListSubDirs(sourceRoot)
	if err != nil {
		return
	}
	for _, order := range orders {
		orderPath := filepath.Join(sourceRoot, order)
		names, e := listOrderDir(orderPath)
		if e != nil {
			broken = append(broken, OrderError{Order: order, Path: orderPath, Err: errors.Wrapf(e, "list order %s", order)})
			continue
		}
		for _, name := range names {
			scenes = append(scenes, SceneDir{Order: order, Name: name, Path: filepath.Join(orderPath, name)})
		}
	}
	return
}

// 求source中未出现在target一级子目录的景；同名景仅保留第一个，其余作为重复返回
func PendingScenes(scenes []SceneDir, processed []string) (pending, dups []SceneDir) {
	done := make(map[string]struct{}, len(processed))
	for _, p := range processed {
		done[p] = struct{}{}
	}
	seen := make(map[string]struct{}, len(scenes))
	for _, s := range scenes {
		if _, ok := done[s.Name]; ok {
			continue
		}
		if _, ok := seen[s.Name]; ok {
			dups = append(dups, s)
			continue
		}
		seen[s.Name] = struct{}{}
		pending = append(pending, s)
	}
	return
}

// 对source_root下所有未处理的景切片，输出至target_root
// 已处理与否只由target_root中是否存在同名目录决定，可安全重复执行
func (c *Chipper) ProcessOrders(ctx context.Context, sourceRoot, targetRoot string) (ret *BatchResult, err error) {
	scenes, broken, err := ListSceneDirs(sourceRoot)
	if err != nil {
		log.Error(c.logTag+"list scenes failed", zap.String("source", sourceRoot), zap.Error(err))
		return
	}
	if err = utils.EnsureDirs(targetRoot); err != nil {
		err = errors.Wrapf(err, "create target root %s", targetRoot)
		return
	}
	processed, err := utils.ListSubDirs(targetRoot)
	if err != nil {
		err = errors.Wrapf(err, "list target root %s", targetRoot)
		return
	}
	pending, dups := PendingScenes(scenes, processed)
	log.Info(c.logTag+"scan orders", zap.Int("scenes", len(scenes)), zap.Int("processed", len(processed)),
		zap.Int("pending", len(pending)), zap.Int("duplicates", len(dups)), zap.Int("unreadable orders", len(broken)))

	ret = &BatchResult{}
	for _, o := range broken {
		log.Error(c.logTag+"list order failed", zap.String("order", o.Path), zap.Error(o.Err))
		ret.fail(o.Path, o.Err)
	}
	for _, d := range dups {
		log.Warn(c.logTag+"duplicate scene name across orders, skipped", zap.String("order", d.Order), zap.String("scene", d.Name))
		ret.skip(d.Path)
	}
	n := runLimited(ctx, c.cfg.Workers, len(pending), func(i int) {
		s := pending[i]
		stats, e := c.ChipScene(s.Path, targetRoot)
		switch {
		case e == nil:
			log.Info(c.logTag+"scene done", zap.String("scene", stats.SceneID), zap.Int("chips", stats.Written))
			ret.done(s.Path)
		case errors.Is(e, ErrSceneNotFound):
			log.Warn(c.logTag+"not a processable scene, skipped", zap.String("scene", s.Path), zap.Error(e))
			ret.skip(s.Path)
		default:
			log.Error(c.logTag+"chip scene failed", zap.String("scene", s.Path), zap.Error(e))
			ret.fail(s.Path, e)
		}
	})
	if n < len(pending) {
		log.Warn(c.logTag+"batch interrupted", zap.Int("dispatched", n), zap.Int("pending", len(pending)), zap.Error(ctx.Err()))
		ret.fail(sourceRoot, errors.Wrap(ctx.Err(), "process orders"))
	}
	log.Info(c.logTag+"orders processed", zap.Int("done", len(ret.Done)), zap.Int("skipped", len(ret.Skipped)),
		zap.Int("failed", len(ret.Failed)))
	return
}
