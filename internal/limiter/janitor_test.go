package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePurger struct {
	calls int
	got   time.Duration
	err   error
}

func (p *fakePurger) Purge(_ context.Context, olderThan time.Duration) (int64, error) {
	p.calls++
	p.got = olderThan
	return 2, p.err
}

func TestJanitor_RunOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &fakePurger{}
	j, err := NewJanitor(p, "@hourly", 48*time.Hour, zap.New(core))
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}

	j.RunOnce()
	if p.calls != 1 || p.got != 48*time.Hour {
		t.Fatalf("purge calls=%d retention=%v", p.calls, p.got)
	}
	if logs.FilterMessage("limiter purged").Len() != 1 {
		t.Fatalf("expected purge log, got %v", logs.All())
	}

	p.err = errors.New("db down")
	j.RunOnce()
	if logs.FilterMessage("limiter purge failed").Len() != 1 {
		t.Fatalf("expected failure log")
	}
}

func TestJanitor_BadSchedule(t *testing.T) {
	if _, err := NewJanitor(&fakePurger{}, "every now and then", time.Hour, nil); err == nil {
		t.Fatalf("want schedule parse error")
	}
}

func TestJanitor_StartStop(t *testing.T) {
	j, err := NewJanitor(&fakePurger{}, "@daily", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.Start()
	select {
	case <-j.Stop().Done():
	case <-time.After(time.Second):
		t.Fatalf("stop did not finish")
	}
}
