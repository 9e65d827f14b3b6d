package aquaprep

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	FILE_EXT_TIF = ".tif"
	FILE_EXT_PNG = ".png"

	SCENE_SUFFIX = "SR.tif"
	CHIPS_DIR    = "chips"
	PNGS_DIR     = "pngs"
	IMAGE_DIR    = "image"
	MASKS_DIR    = "class_masks"
	MASK_SUFFIX  = "_mask"

	SCENE_ID_TOKENS = 3
	NO_DATA         = 0
	CHIP_BANDS      = 4
	MASK_VALUE      = 1

	DefaultChipSize    = 512
	DefaultStretchLow  = 2.0
	DefaultStretchHigh = 98.0
	DefaultClassAttr   = "class"
	DefaultWorkers     = 1

	VIS_MIN = 0
	VIS_MAX = 255
)

// 默认可视化波段：源影像波段为B,G,R,NIR，输出为R,G,B
var DefaultVisBands = []int{3, 2, 1}

type Config struct {
	ChipSize    int     `yaml:"chip_size"`
	Workers     int     `yaml:"workers"`
	SceneSuffix string  `yaml:"scene_suffix"`
	NoData      uint16  `yaml:"no_data"`
	VisBands    []int   `yaml:"vis_bands"`
	StretchLow  float64 `yaml:"stretch_low"`
	StretchHigh float64 `yaml:"stretch_high"`
	// 为true时切片沿用整景的仿射变换（与旧输出兼容），否则按窗口原点平移
	KeepSceneTransform bool   `yaml:"keep_scene_transform"`
	ClassAttr          string `yaml:"class_attr"`
	FillRule           string `yaml:"fill_rule"`
	LogLevel           string `yaml:"log_level"`
	LogJSON            bool   `yaml:"log_json"`
}

func DefaultConfig() Config {
	return Config{
		ChipSize:    DefaultChipSize,
		Workers:     DefaultWorkers,
		SceneSuffix: SCENE_SUFFIX,
		NoData:      NO_DATA,
		VisBands:    append([]int(nil), DefaultVisBands...),
		StretchLow:  DefaultStretchLow,
		StretchHigh: DefaultStretchHigh,
		ClassAttr:   DefaultClassAttr,
		FillRule:    FillEvenOdd.String(),
		LogLevel:    "info",
	}
}

// 读取yaml配置，文件中未出现的字段保留默认值；path为空时直接返回默认配置
func LoadConfig(path string) (c Config, err error) {
	c = DefaultConfig()
	if path == "" {
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "read config %s", path)
		return
	}
	if err = yaml.UnmarshalStrict(raw, &c); err != nil {
		err = errors.Wrapf(ErrInvalidConfig, "parse config %s: %v", path, err)
		return
	}
	err = c.Validate()
	return
}

func (c *Config) Validate() error {
	if c.ChipSize <= 0 {
		return errors.Wrapf(ErrInvalidChipSize, "chip_size=%d", c.ChipSize)
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.SceneSuffix == "" {
		c.SceneSuffix = SCENE_SUFFIX
	}
	if c.ClassAttr == "" {
		c.ClassAttr = DefaultClassAttr
	}
	if len(c.VisBands) != 3 {
		return errors.Wrapf(ErrInvalidConfig, "vis_bands must name 3 bands, got %v", c.VisBands)
	}
	for _, b := range c.VisBands {
		if b < 1 || b > CHIP_BANDS {
			return errors.Wrapf(ErrInvalidConfig, "vis band %d outside 1..%d", b, CHIP_BANDS)
		}
	}
	if c.StretchLow < 0 || c.StretchHigh > 100 || c.StretchLow >= c.StretchHigh {
		return errors.Wrapf(ErrInvalidConfig, "stretch percentiles %v/%v", c.StretchLow, c.StretchHigh)
	}
	if _, err := ParseFillRule(c.FillRule); err != nil {
		return err
	}
	return nil
}
