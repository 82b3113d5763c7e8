package engine

import (
	"context"
	"testing"

	"github.com/hshukla4/stt-project/internal/errors"
)

// fakeCapability implements Capability for registry tests.
type fakeCapability struct {
	id         ID
	descriptor string
	probeErr   error
	probed     int
}

func (f *fakeCapability) ID() ID             { return f.id }
func (f *fakeCapability) Descriptor() string { return f.descriptor }

func (f *fakeCapability) Probe(ctx context.Context) error {
	f.probed++
	return f.probeErr
}

func (f *fakeCapability) Transcribe(ctx context.Context, audioPath, language string) (*Transcript, error) {
	return &Transcript{Text: "fake"}, nil
}

func TestNewRegistry(t *testing.T) {
	healthy := &fakeCapability{id: Local, descriptor: "base"}
	broken := &fakeCapability{id: OpenAI, probeErr: errors.NewNotAvailableError("no key")}

	reg := NewRegistry(context.Background(), healthy, broken)

	if !reg.IsAvailable(Local) {
		t.Error("expected local to be available")
	}
	if reg.IsAvailable(OpenAI) {
		t.Error("expected openai to be unavailable")
	}
	if healthy.probed != 1 || broken.probed != 1 {
		t.Errorf("expected exactly one probe per engine, got %d and %d", healthy.probed, broken.probed)
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != Local || ids[1] != OpenAI {
		t.Errorf("expected [local openai] in registration order, got %v", ids)
	}

	avail := reg.ListAvailable()
	if len(avail) != 1 || avail[0] != Local {
		t.Errorf("expected only local available, got %v", avail)
	}
}

func TestRegistry_Get(t *testing.T) {
	eng := &fakeCapability{id: Local}
	reg := NewRegistry(context.Background(), eng)

	got, ok := reg.Get(Local)
	if !ok || got != eng {
		t.Error("expected to get registered engine back")
	}

	if _, ok := reg.Get("deepgram"); ok {
		t.Error("expected unknown engine to be absent")
	}
}

func TestRegistry_NoProbeAtRequestTime(t *testing.T) {
	eng := &fakeCapability{id: Local}
	reg := NewRegistry(context.Background(), eng)

	// Availability reads must not trigger re-probing.
	for i := 0; i < 5; i++ {
		reg.IsAvailable(Local)
		reg.ListAvailable()
	}
	if eng.probed != 1 {
		t.Errorf("expected a single startup probe, got %d", eng.probed)
	}
}
