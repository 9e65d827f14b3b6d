package aquaprep

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	SHAPE_POLYGON = "polygon"
	SHAPE_RECT    = "rect"
)

type Point struct {
	X float64
	Y float64
}

// 标注形状，Rings返回像素坐标下的闭合环
type Shape interface {
	Kind() string
	Rings() [][]Point
}

type Polygon struct {
	Xs []float64
	Ys []float64
}

func (p Polygon) Kind() string {
	return SHAPE_POLYGON
}

func (p Polygon) Rings() [][]Point {
	ring := make([]Point, len(p.Xs))
	for i := range ring {
		ring[i] = Point{p.Xs[i], p.Ys[i]}
	}
	return [][]Point{ring}
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Kind() string {
	return SHAPE_RECT
}

func (r Rect) Rings() [][]Point {
	return [][]Point{{
		{r.X, r.Y},
		{r.X + r.Width, r.Y},
		{r.X + r.Width, r.Y + r.Height},
		{r.X, r.Y + r.Height},
	}}
}

type shapeAttrs struct {
	Name       string    `json:"name"`
	AllPointsX []float64 `json:"all_points_x"`
	AllPointsY []float64 `json:"all_points_y"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
}

// 标注工具导出的单个区域
type Region struct {
	Attributes map[string]json.RawMessage `json:"region_attributes"`
	ShapeAttrs json.RawMessage            `json:"shape_attributes"`
}

// 读取类别属性：字符串直接返回；复选框形式（{"label":true}）取唯一选中的键
func (r Region) Class(attr string) (class string, ok bool) {
	raw, ok := r.Attributes[attr]
	if !ok {
		return
	}
	if err := json.Unmarshal(raw, &class); err == nil {
		class = strings.TrimSpace(class)
		ok = class != ""
		return
	}
	var checked map[string]bool
	if err := json.Unmarshal(raw, &checked); err != nil {
		ok = false
		return
	}
	class = ""
	for k, v := range checked {
		if !v {
			continue
		}
		if class != "" {
			ok = false
			return
		}
		class = k
	}
	ok = class != ""
	return
}

func (r Region) Shape() (s Shape, err error) {
	var sa shapeAttrs
	if err = json.Unmarshal(r.ShapeAttrs, &sa); err != nil {
		err = errors.Wrapf(ErrMalformedAnnotation, "shape attributes: %v", err)
		return
	}
	switch sa.Name {
	case SHAPE_POLYGON:
		if len(sa.AllPointsX) != len(sa.AllPointsY) || len(sa.AllPointsX) < 3 {
			err = errors.Wrapf(ErrMalformedAnnotation, "polygon with %d x / %d y points", len(sa.AllPointsX), len(sa.AllPointsY))
			return
		}
		s = Polygon{Xs: sa.AllPointsX, Ys: sa.AllPointsY}
	case SHAPE_RECT:
		if sa.Width <= 0 || sa.Height <= 0 {
			err = errors.Wrapf(ErrMalformedAnnotation, "rect %vx%v", sa.Width, sa.Height)
			return
		}
		s = Rect{X: sa.X, Y: sa.Y, Width: sa.Width, Height: sa.Height}
	default:
		err = errors.Wrapf(ErrUnsupportedShape, "shape %q", sa.Name)
	}
	return
}

// 区域列表，兼容数组及以"0","1",...为键的对象两种导出格式
type regionList []Region

func (l *regionList) UnmarshalJSON(b []byte) (err error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return
	}
	if b[0] == '[' {
		var rs []Region
		if err = json.Unmarshal(b, &rs); err == nil {
			*l = rs
		}
		return
	}
	var m map[string]Region
	if err = json.Unmarshal(b, &m); err != nil {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, ei := strconv.Atoi(keys[i])
		kj, ej := strconv.Atoi(keys[j])
		if ei == nil && ej == nil {
			return ki < kj
		}
		return keys[i] < keys[j]
	})
	rs := make([]Region, len(keys))
	for i, k := range keys {
		rs[i] = m[k]
	}
	*l = rs
	return
}

// 单张切片图的标注记录，Err非空表示该记录无法解析
type Annotation struct {
	Key      string
	Filename string
	Regions  []Region
	Err      error
}

type viaRecord struct {
	Filename string     `json:"filename"`
	Regions  regionList `json:"regions"`
}

// 解析标注导出文件：丢弃外层键，去掉无区域（未标注）的记录，按文件名排序
// 单条记录格式错误不影响其余记录
func ParseAnnotations(r io.Reader) (anns []Annotation, err error) {
	var raw map[string]json.RawMessage
	if err = json.NewDecoder(r).Decode(&raw); err != nil {
		err = errors.Wrapf(ErrMalformedAnnotation, "decode export: %v", err)
		return
	}
	for key, msg := range raw {
		var rec viaRecord
		if e := json.Unmarshal(msg, &rec); e != nil {
			anns = append(anns, Annotation{Key: key, Err: errors.Wrapf(ErrMalformedAnnotation, "record %q: %v", key, e)})
			continue
		}
		if len(rec.Regions) == 0 {
			continue
		}
		a := Annotation{Key: key, Filename: rec.Filename, Regions: rec.Regions}
		if rec.Filename == "" {
			a.Err = errors.Wrapf(ErrMalformedAnnotation, "record %q without filename", key)
		}
		anns = append(anns, a)
	}
	sort.Slice(anns, func(i, j int) bool {
		if anns[i].Filename != anns[j].Filename {
			return anns[i].Filename < anns[j].Filename
		}
		return anns[i].Key < anns[j].Key
	})
	return
}

func LoadAnnotations(path string) (anns []Annotation, err error) {
	f, err := os.Open(path)
	if err != nil {
		err = errors.Wrapf(err, "open annotation export %s", path)
		return
	}
	defer f.Close()
	anns, err = ParseAnnotations(f)
	return
}

// 按类别分组区域形状；任一区域缺少类别即报ErrMissingClass
func GroupByClass(a Annotation, classAttr string) (groups map[string][]Shape, err error) {
	groups = make(map[string][]Shape)
	var (
		class string
		ok    bool
		s     Shape
	)
	for i, r := range a.Regions {
		if class, ok = r.Class(classAttr); !ok {
			err = errors.Wrapf(ErrMissingClass, "%s region %d", a.Filename, i)
			return
		}
		if s, err = r.Shape(); err != nil {
			err = errors.Wrapf(err, "%s region %d", a.Filename, i)
			return
		}
		groups[class] = append(groups[class], s)
	}
	return
}
