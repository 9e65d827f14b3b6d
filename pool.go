package aquaprep

import (
	"context"
	"sync"
)

// 并发限制器：Pool容量即最大并发数
type concLimiter struct {
	*sync.WaitGroup
	Pool chan struct{}
}

func newConcLimiter(cLevel int) *concLimiter {
	if cLevel < 1 {
		cLevel = 1
	}
	var wg sync.WaitGroup
	return &concLimiter{&wg, make(chan struct{}, cLevel)}
}

func (c *concLimiter) increase() {
	c.Add(1)
	c.Pool <- struct{}{}
}

func (c *concLimiter) decrease() {
	select {
	case <-c.Pool:
		c.Done()
	default:
	}
}

// 以至多workers个goroutine对[0,n)逐个执行fn；ctx取消后不再派发新任务，已派发的任务照常完成
func runLimited(ctx context.Context, workers, n int, fn func(i int)) (dispatched int) {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
			dispatched++
		}
		return
	}
	cl := newConcLimiter(workers)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		cl.increase()
		dispatched++
		go func(i int) {
			defer cl.decrease()
			fn(i)
		}(i)
	}
	cl.Wait()
	return
}
