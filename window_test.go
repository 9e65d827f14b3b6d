package aquaprep

import (
	"testing"

	"github.com/pkg/errors"
)

func TestGridWindows(t *testing.T) {
	cases := []struct {
		h, w, size int
		want       int
	}{
		{1024, 1024, 512, 4},
		{1100, 1030, 512, 4},
		{1023, 2048, 512, 4},
		{511, 4096, 512, 0},
		{2000, 1000, 256, 7 * 3},
		{10, 10, 1, 100},
	}
	for _, c := range cases {
		ws, err := GridWindows(c.h, c.w, c.size)
		if err != nil {
			t.Fatal(err)
		}
		if len(ws) != c.want {
			t.Errorf("%dx%d/%d: got %d windows, want %d", c.h, c.w, c.size, len(ws), c.want)
		}
		for _, w := range ws {
			if w.Height() != c.size || w.Width() != c.size {
				t.Fatalf("window %s not %d square", w, c.size)
			}
			if w.RowEnd > c.h || w.ColEnd > c.w {
				t.Fatalf("window %s out of %dx%d", w, c.h, c.w)
			}
			if w.RowStart%c.size != 0 || w.ColStart%c.size != 0 {
				t.Fatalf("window %s off grid", w)
			}
		}
	}
}

func TestGridWindowsOrder(t *testing.T) {
	ws, err := GridWindows(1024, 1024, 512)
	if err != nil {
		t.Fatal(err)
	}
	want := []Window{
		{0, 512, 0, 512},
		{0, 512, 512, 1024},
		{512, 1024, 0, 512},
		{512, 1024, 512, 1024},
	}
	for i := range want {
		if ws[i] != want[i] {
			t.Errorf("window %d: got %s, want %s", i, ws[i], want[i])
		}
	}
}

func TestGridWindowsInvalidSize(t *testing.T) {
	for _, size := range []int{0, -512} {
		if _, err := GridWindows(1024, 1024, size); !errors.Is(err, ErrInvalidChipSize) {
			t.Errorf("size %d: got %v", size, err)
		}
	}
}

func TestHasNoData(t *testing.T) {
	full := [][]uint16{{1, 2, 3}, {4, 5, 6}}
	if hasNoData(full, NO_DATA) {
		t.Fatal("no zero pixel expected")
	}
	full[1][2] = 0
	if !hasNoData(full, NO_DATA) {
		t.Fatal("zero pixel not detected")
	}
}

func TestGeoTransformOffset(t *testing.T) {
	gt := GeoTransform{500000, 3, 0, 2500000, 0, -3}
	got := gt.Offset(512, 1024)
	want := GeoTransform{500000 + 1024*3, 3, 0, 2500000 - 512*3, 0, -3}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if gt.Offset(0, 0) != gt {
		t.Fatal("zero offset must keep transform")
	}
}
