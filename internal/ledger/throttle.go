package ledger

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Throttle 全局限流门：所有出站请求共享，相邻两次请求至少间隔 interval。
// 公共 RPC 的限流是按总量计算的，因此不区分方法。
type Throttle struct {
	limiter  *rate.Limiter
	clock    clockwork.Clock
	interval time.Duration
}

func NewThrottle(interval time.Duration, clock clockwork.Clock) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
		interval: interval,
	}
}

func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Wait 阻塞直到获得放行，返回实际等待时长。ctx 取消时归还预约。
func (t *Throttle) Wait(ctx context.Context) (time.Duration, error) {
	now := t.clock.Now()
	r := t.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return 0, nil
	}
	select {
	case <-t.clock.After(delay):
		return delay, nil
	case <-ctx.Done():
		r.CancelAt(t.clock.Now())
		return 0, ctx.Err()
	}
}
