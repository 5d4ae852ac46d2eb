package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/clock"
	"github.com/SmitUplenchwar2687/radarplay/internal/playback"
	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeRegistry struct {
	mu          sync.Mutex
	sources     map[string]Source
	unregisters []string
	failReg     error
	failUnreg   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{sources: map[string]Source{}}
}

func (r *fakeRegistry) Register(_ context.Context, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReg != nil {
		return r.failReg
	}
	r.sources[src.ID] = src
	return nil
}

func (r *fakeRegistry) Unregister(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisters = append(r.unregisters, id)
	delete(r.sources, id)
	return r.failUnreg
}

func (r *fakeRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

type published struct {
	stream  string
	payload string
}

type fakePublisher struct {
	mu  sync.Mutex
	got []published
}

func (p *fakePublisher) Publish(stream string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, published{stream, string(payload)})
	return nil
}

func (p *fakePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.got...)
}

func flush(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
}

func encodeFixture(t *testing.T) []byte {
	t.Helper()
	base := epoch.UnixMilli()
	buf, err := recording.Encode(
		recording.Header{Brand: 3, SpokesPerRevolution: 2048, MaxSpokeLength: 512, PixelDepth: 4, StartTimeMs: base},
		recording.Document{"model": "HALO24"},
		recording.Document{"range": 1852.0},
		[]recording.Frame{
			{TimestampMs: base, Data: []byte("s0")},
			{TimestampMs: base + 100, Flags: recording.FrameHasStateDelta, Data: []byte("s1"), StateDelta: []byte(`{"range":926}`)},
			{TimestampMs: base + 200, Data: []byte("s2")},
		},
		recording.EncodeOptions{},
	)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func newTestManager(t *testing.T) (*Manager, *clock.VirtualClock, *fakeRegistry, *fakePublisher) {
	t.Helper()
	vc := clock.NewVirtualClock(epoch)
	reg := newFakeRegistry()
	pub := &fakePublisher{}
	m := NewManager(Options{Clock: vc, Registry: reg, Publisher: pub})
	return m, vc, reg, pub
}

func TestManager_LoadRegistersSource(t *testing.T) {
	m, _, reg, _ := newTestManager(t)

	res, err := m.Load(context.Background(), "harbour.mrr", encodeFixture(t))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if res.ID == "" || res.Name != "harbour.mrr" {
		t.Errorf("LoadResult = %+v", res)
	}
	if res.FrameCount != 3 || res.DurationMs != 200 {
		t.Errorf("FrameCount/DurationMs = %d/%d, want 3/200", res.FrameCount, res.DurationMs)
	}

	src, ok := reg.sources[res.ID]
	if !ok {
		t.Fatal("source not registered")
	}
	if src.Spokes != 2048 || src.MaxSpokeLength != 512 || src.Brand != 3 || src.PixelDepth != 4 {
		t.Errorf("registered source = %+v", src)
	}
	if src.Capabilities.String("model", "") != "HALO24" {
		t.Errorf("capabilities = %v", src.Capabilities)
	}

	st := m.Status()
	if st.State != playback.Loaded || st.ID != res.ID {
		t.Errorf("Status() = %+v", st)
	}
}

func TestManager_PlayPublishesStreams(t *testing.T) {
	m, vc, _, pub := newTestManager(t)
	res, err := m.Load(context.Background(), "a.mrr", encodeFixture(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Play(); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	vc.Advance(time.Second)
	flush(t, m)

	want := []published{
		{SpokesStream(res.ID), "s0"},
		{SpokesStream(res.ID), "s1"},
		{StateStream(res.ID), `{"range":926}`},
		{SpokesStream(res.ID), "s2"},
	}
	got := pub.all()
	if len(got) != len(want) {
		t.Fatalf("published %d messages, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if st := m.Status(); st.State != playback.Finished {
		t.Errorf("State = %s, want finished", st.State)
	}
}

func TestManager_LoadReplacesActiveSession(t *testing.T) {
	m, vc, reg, pub := newTestManager(t)
	ctx := context.Background()

	first, err := m.Load(ctx, "a.mrr", encodeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	m.SetLooping(true)
	m.Play()
	vc.Advance(50 * time.Millisecond)
	flush(t, m)

	second, err := m.Load(ctx, "b.mrr", encodeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("reload reused the source id")
	}
	if reg.count() != 1 {
		t.Errorf("registered sources = %d, want 1", reg.count())
	}
	if len(reg.unregisters) != 1 || reg.unregisters[0] != first.ID {
		t.Errorf("unregisters = %v, want [%s]", reg.unregisters, first.ID)
	}

	before := len(pub.all())
	vc.Advance(time.Hour)
	flush(t, m)
	if len(pub.all()) != before {
		t.Error("old session kept publishing after reload")
	}

	st := m.Status()
	if st.State != playback.Loaded || !st.Looping {
		t.Errorf("status after reload = %+v, want loaded with looping kept", st)
	}
}

func TestManager_LoadFailureKeepsSession(t *testing.T) {
	m, _, reg, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Load(ctx, "good.mrr", encodeFixture(t))
	if err != nil {
		t.Fatal(err)
	}

	bad := encodeFixture(t)
	bad[0] = 'X'
	_, err = m.Load(ctx, "bad.mrr", bad)
	if !errors.Is(err, recording.ErrMalformedContainer) {
		t.Fatalf("Load(bad) error = %v, want malformed container", err)
	}
	if st := m.Status(); st.ID != res.ID || st.State != playback.Loaded {
		t.Errorf("status after failed load = %+v, want previous session", st)
	}
	if reg.count() != 1 {
		t.Errorf("registered sources = %d, want 1", reg.count())
	}
}

func TestManager_LoadCompressed(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	gz, err := recording.Compress(encodeFixture(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.Load(context.Background(), "a.mrr.gz", gz); err != nil {
		t.Fatalf("Load(gz) error: %v", err)
	}

	_, err = m.Load(context.Background(), "broken.mrr.gz", []byte("not gzip"))
	if recording.KindOf(err) != recording.DecompressionFailed {
		t.Errorf("KindOf = %v, want decompression_failed", recording.KindOf(err))
	}
}

func TestManager_RegisterFailure(t *testing.T) {
	m, vc, reg, pub := newTestManager(t)
	reg.failReg = errors.New("host unavailable")

	_, err := m.Load(context.Background(), "a.mrr", encodeFixture(t))
	if err == nil {
		t.Fatal("expected error when registration fails")
	}
	if st := m.Status(); st.State != playback.Idle {
		t.Errorf("State = %s, want idle", st.State)
	}
	if err := m.Play(); !errors.Is(err, ErrNoRecording) {
		t.Errorf("Play() error = %v, want ErrNoRecording", err)
	}
	vc.Advance(time.Second)
	if len(pub.all()) != 0 {
		t.Error("frames published for unregistered source")
	}
}

func TestManager_StopUnregisters(t *testing.T) {
	m, vc, reg, pub := newTestManager(t)
	ctx := context.Background()

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() with nothing loaded: %v", err)
	}

	res, _ := m.Load(ctx, "a.mrr", encodeFixture(t))
	m.Play()
	flush(t, m)
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if reg.count() != 0 || len(reg.unregisters) != 1 || reg.unregisters[0] != res.ID {
		t.Errorf("registry after Stop: sources=%d unregisters=%v", reg.count(), reg.unregisters)
	}

	before := len(pub.all())
	vc.Advance(time.Hour)
	if len(pub.all()) != before {
		t.Error("published after Stop")
	}
	if st := m.Status(); st.State != playback.Idle || st.ID != "" {
		t.Errorf("status after Stop = %+v", st)
	}
}

func TestManager_StopReportsUnregisterError(t *testing.T) {
	m, _, reg, _ := newTestManager(t)
	ctx := context.Background()
	m.Load(ctx, "a.mrr", encodeFixture(t))

	reg.failUnreg = errors.New("gone")
	if err := m.Stop(ctx); err == nil {
		t.Error("expected unregister error from Stop")
	}
	if st := m.Status(); st.State != playback.Idle {
		t.Errorf("State = %s, want idle even when unregister fails", st.State)
	}
}

func TestManager_ControlsWithoutRecording(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	for name, fn := range map[string]func() error{
		"Play":  m.Play,
		"Pause": m.Pause,
		"Seek":  func() error { return m.Seek(10) },
	} {
		if err := fn(); !errors.Is(err, ErrNoRecording) {
			t.Errorf("%s() error = %v, want ErrNoRecording", name, err)
		}
	}
}

func TestManager_SeekAndPause(t *testing.T) {
	m, vc, _, pub := newTestManager(t)
	res, _ := m.Load(context.Background(), "a.mrr", encodeFixture(t))

	if err := m.Seek(50); err != nil {
		t.Fatal(err)
	}
	m.Play()
	m.Pause()
	vc.Advance(time.Second)
	flush(t, m)

	got := pub.all()
	if len(got) != 2 || got[0] != (published{SpokesStream(res.ID), "s1"}) || got[1].stream != StateStream(res.ID) {
		t.Errorf("published = %+v, want only s1 and its state delta", got)
	}
	if st := m.Status(); st.State != playback.Paused {
		t.Errorf("State = %s, want paused", st.State)
	}
}

func TestManager_StalledPublisherDoesNotBlockControls(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stalled := PublisherFunc(func(string, []byte) error {
		<-release
		return nil
	})
	m := NewManager(Options{Clock: clock.NewRealClock(), Publisher: stalled, QueueSize: 1})
	ctx := context.Background()
	if _, err := m.Load(ctx, "a.mrr", encodeFixture(t)); err != nil {
		t.Fatal(err)
	}

	within := func(name string, fn func()) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			fn()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("%s blocked behind a stalled publisher", name)
		}
	}

	within("Play", func() { m.Play() })
	time.Sleep(300 * time.Millisecond)
	var st Status
	within("Status", func() { st = m.Status() })
	if st.State != playback.Finished {
		t.Errorf("State = %s, want finished on schedule", st.State)
	}
	if st.FrameIndex != 3 {
		t.Errorf("FrameIndex = %d, want 3", st.FrameIndex)
	}
	if st.Dropped == 0 {
		t.Error("Dropped = 0, want overflow from the one-slot queue")
	}
	within("Stop", func() { m.Stop(ctx) })
}

func TestFanout_JoinsErrors(t *testing.T) {
	var hits []string
	ok := PublisherFunc(func(stream string, _ []byte) error {
		hits = append(hits, "ok:"+stream)
		return nil
	})
	errA := errors.New("a down")
	bad := PublisherFunc(func(string, []byte) error { return errA })

	err := Fanout{bad, ok}.Publish("x.spokes", []byte{1})
	if !errors.Is(err, errA) {
		t.Errorf("error = %v, want errA", err)
	}
	if len(hits) != 1 {
		t.Errorf("healthy publisher hit %d times, want 1", len(hits))
	}
	if err := (Fanout{}).Publish("x", nil); err != nil {
		t.Errorf("empty fanout error = %v", err)
	}
}

func TestRegistries_RollsBackOnFailure(t *testing.T) {
	a := newFakeRegistry()
	b := newFakeRegistry()
	b.failReg = errors.New("refused")

	err := Registries{a, b}.Register(context.Background(), Source{ID: "id1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if a.count() != 0 {
		t.Error("first registry kept the source after rollback")
	}
}

func TestStreamSink_StateDelta(t *testing.T) {
	pub := &fakePublisher{}
	sink := &StreamSink{ID: "abc", Publisher: pub}

	if err := sink.Deliver(recording.Frame{Data: []byte{1, 2}}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Deliver(recording.Frame{Flags: recording.FrameHasStateDelta, Data: []byte{3}, StateDelta: []byte("{}")}); err != nil {
		t.Fatal(err)
	}

	got := pub.all()
	if len(got) != 3 {
		t.Fatalf("published %d, want 3", len(got))
	}
	if got[0].stream != "abc.spokes" || !bytes.Equal([]byte(got[0].payload), []byte{1, 2}) {
		t.Errorf("first = %+v", got[0])
	}
	if got[2].stream != "abc.state" || got[2].payload != "{}" {
		t.Errorf("state = %+v", got[2])
	}
}
