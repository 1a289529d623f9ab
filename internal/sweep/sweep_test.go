package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubTarget struct {
	calls int
	err   error
}

func (s *stubTarget) Sweep(_ context.Context, _ time.Time) (int, int, error) {
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	return 3, 0, nil
}

func TestRunOnce_SweepsAllTargets(t *testing.T) {
	r := NewRunner(time.Minute, zerolog.Nop())
	a := &stubTarget{}
	b := &stubTarget{}
	r.Register("medication", a)
	r.Register("shift", b)

	r.RunOnce(context.Background(), time.Now())
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected both targets swept once, got %d/%d", a.calls, b.calls)
	}
}

func TestRunOnce_FailingTargetIsIsolated(t *testing.T) {
	r := NewRunner(time.Minute, zerolog.Nop())
	bad := &stubTarget{err: fmt.Errorf("storage unavailable")}
	good := &stubTarget{}
	r.Register("medication", bad)
	r.Register("shift", good)

	r.RunOnce(context.Background(), time.Now())
	if good.calls != 1 {
		t.Fatal("expected pass to continue past the failing target")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := NewRunner(10*time.Millisecond, zerolog.Nop())
	tg := &stubTarget{}
	r.Register("medication", tg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on cancel")
	}
	if tg.calls < 2 {
		t.Fatalf("expected immediate pass plus ticks, got %d", tg.calls)
	}
}
