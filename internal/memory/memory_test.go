package memory

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MemoryLimitBytes != 0 {
		t.Errorf("Expected MemoryLimitBytes to be 0, got %d", cfg.MemoryLimitBytes)
	}
	if cfg.CriticalWaterMark != 0.85 {
		t.Errorf("Expected CriticalWaterMark to be 0.85, got %f", cfg.CriticalWaterMark)
	}
	if cfg.RecheckInterval <= 0 || cfg.MaxWait <= 0 {
		t.Errorf("Expected positive intervals, got %v / %v", cfg.RecheckInterval, cfg.MaxWait)
	}
}

func newTestMonitor(limit int64, alloc *uint64) *Monitor {
	m := NewMonitor(Config{
		MemoryLimitBytes:  limit,
		CriticalWaterMark: 0.85,
		RecheckInterval:   time.Millisecond,
		MaxWait:           20 * time.Millisecond,
	})
	m.readAlloc = func() uint64 { return *alloc }
	return m
}

func TestMonitorUsage(t *testing.T) {
	alloc := uint64(50)
	m := newTestMonitor(100, &alloc)

	if got := m.Usage(); got != 0.5 {
		t.Errorf("Usage() = %v, want 0.5", got)
	}
}

func TestWaitForHeadroomBelowMark(t *testing.T) {
	alloc := uint64(10)
	m := newTestMonitor(100, &alloc)

	if err := m.WaitForHeadroom(context.Background()); err != nil {
		t.Errorf("WaitForHeadroom() error = %v", err)
	}
}

func TestWaitForHeadroomGivesUp(t *testing.T) {
	alloc := uint64(99)
	m := newTestMonitor(100, &alloc)

	start := time.Now()
	if err := m.WaitForHeadroom(context.Background()); err != nil {
		t.Errorf("WaitForHeadroom() error = %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("WaitForHeadroom() returned before MaxWait")
	}
}

func TestWaitForHeadroomCancelled(t *testing.T) {
	alloc := uint64(99)
	m := newTestMonitor(100, &alloc)
	m.config.MaxWait = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.WaitForHeadroom(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForHeadroom() error = %v, want context.Canceled", err)
	}
}

func TestWaitForHeadroomNoLimit(t *testing.T) {
	m := &Monitor{config: DefaultConfig()}
	if err := m.WaitForHeadroom(context.Background()); err != nil {
		t.Errorf("WaitForHeadroom() error = %v", err)
	}
}
