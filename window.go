package aquaprep

import "github.com/pkg/errors"

// 单轴切片边界：[k*size, (k+1)*size)，末尾不足size的部分丢弃
func axisSpans(length, size int) (spans [][2]int) {
	for start := 0; start+size <= length; start += size {
		spans = append(spans, [2]int{start, start + size})
	}
	return
}

// 按chipSize规则网格划分height*width的影像，行优先
func GridWindows(height, width, chipSize int) (ws []Window, err error) {
	if chipSize <= 0 {
		err = errors.Wrapf(ErrInvalidChipSize, "chip size %d", chipSize)
		return
	}
	rows := axisSpans(height, chipSize)
	cols := axisSpans(width, chipSize)
	ws = make([]Window, 0, len(rows)*len(cols))
	for _, r := range rows {
		for _, c := range cols {
			ws = append(ws, Window{RowStart: r[0], RowEnd: r[1], ColStart: c[0], ColEnd: c[1]})
		}
	}
	return
}

// 窗口内任一像素为noData即视为覆盖不完整
func hasNoData(bands [][]uint16, noData uint16) bool {
	for _, b := range bands {
		for _, v := range b {
			if v == noData {
				return true
			}
		}
	}
	return false
}
