package quota

import (
	"context"
	"errors"
	"sync"
	"time"

	"autoblog/config"
)

// ErrDailyQuotaExceeded 는 일일 한도를 모두 사용한 뒤 Reserve 가 반환한다.
var ErrDailyQuotaExceeded = errors.New("inference daily quota exceeded")

// SummaryQuotaLimiter 는 추론 호출(요약/태깅)에 대한 분당/일일 한도를 관리한다.
// 프로세스 하나를 전제로 인메모리로 동작하며, 재시작되면 카운터가 초기화된다.
type SummaryQuotaLimiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time

	now func() time.Time
}

// NewSummaryQuotaLimiterFromConfig 는 config.yaml 의 summary_quota 설정을 기반으로
// SummaryQuotaLimiter 를 생성한다. 설정 값이 0 이하인 경우에는 해당 방향의 제한을 두지 않는다.
func NewSummaryQuotaLimiterFromConfig(cfg config.SummaryQuotaConfig) *SummaryQuotaLimiter {
	return NewSummaryQuotaLimiter(cfg.RequestsPerMinute, cfg.RequestsPerDay)
}

func NewSummaryQuotaLimiter(requestsPerMinute, requestsPerDay int) *SummaryQuotaLimiter {
	if requestsPerDay < 0 {
		requestsPerDay = 0
	}

	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}

	return &SummaryQuotaLimiter{
		dailyLimit: requestsPerDay,
		interval:   interval,
		now:        time.Now,
	}
}

// WaitAndReserve 는 추론 호출 전에 분당/일일 한도를 적용한다.
// - 일일 한도를 초과한 경우: (false, nil) 을 반환하고 호출자는 추론 호출을 스킵해야 한다.
// - 컨텍스트 취소 시: (false, error)를 반환한다.
func (l *SummaryQuotaLimiter) WaitAndReserve(ctx context.Context) (bool, error) {
	for {
		l.mu.Lock()

		now := l.now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return false, nil
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			delay = l.lastCall.Add(l.interval).Sub(now)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return true, nil
		}

		// 락을 풀고 대기 후 다시 상태를 재평가한다.
		l.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		}
	}
}

// Reserve 는 일일 한도 초과를 ErrDailyQuotaExceeded 로 돌려주는 WaitAndReserve 이다.
func (l *SummaryQuotaLimiter) Reserve(ctx context.Context) error {
	ok, err := l.WaitAndReserve(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDailyQuotaExceeded
	}
	return nil
}
