package observability

import (
	"context"
	"testing"
	"time"
)

type recordingCutoutHooks struct {
	NoopCutoutHooks
	classifyStarts int
}

func (h *recordingCutoutHooks) OnClassifyStart(ctx context.Context, itemCount, workers int) {
	h.classifyStarts++
}

func TestHookRegistration(t *testing.T) {
	defer Reset()

	rec := &recordingCutoutHooks{}
	SetCutoutHooks(rec)

	Cutout().OnClassifyStart(context.Background(), 10, 4)
	Cutout().OnClassifyStart(context.Background(), 20, 4)
	if rec.classifyStarts != 2 {
		t.Errorf("classifyStarts = %d, want 2", rec.classifyStarts)
	}

	// Other categories stay no-op.
	Stackup().OnTransformComplete(context.Background(), "flip", time.Second, nil)
	Cache().OnCacheHit(context.Background(), "extent")
}

func TestSetNilKeepsCurrent(t *testing.T) {
	defer Reset()

	rec := &recordingCutoutHooks{}
	SetCutoutHooks(rec)
	SetCutoutHooks(nil)

	Cutout().OnClassifyStart(context.Background(), 1, 1)
	if rec.classifyStarts != 1 {
		t.Error("nil registration must not replace existing hooks")
	}
}

func TestReset(t *testing.T) {
	rec := &recordingCutoutHooks{}
	SetCutoutHooks(rec)
	Reset()

	if _, ok := Cutout().(NoopCutoutHooks); !ok {
		t.Error("Reset should restore no-op hooks")
	}
}
