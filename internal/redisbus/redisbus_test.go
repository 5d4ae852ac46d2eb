package redisbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/radarplay/internal/recording"
	"github.com/SmitUplenchwar2687/radarplay/internal/session"
)

func TestNormalizeConfig(t *testing.T) {
	if _, err := normalizeConfig(Config{}); err == nil {
		t.Error("expected error for empty addr")
	}
	if _, err := normalizeConfig(Config{Addr: "localhost:6379", DB: -1}); err == nil {
		t.Error("expected error for negative db")
	}

	conf, err := normalizeConfig(Config{Addr: "localhost:6379"})
	if err != nil {
		t.Fatalf("normalizeConfig() error: %v", err)
	}
	if conf.Prefix != defaultPrefix {
		t.Errorf("Prefix = %q, want %q", conf.Prefix, defaultPrefix)
	}
	if conf.PoolSize != defaultPoolSize || conf.MaxRetries != defaultMaxRetries || conf.DialTimeout != defaultDialTimeout {
		t.Errorf("defaults not applied: %+v", conf)
	}
}

func TestBus_KeyLayout(t *testing.T) {
	b := &Bus{prefix: "rp:"}
	if got := b.Channel("abc.spokes"); got != "rp:abc.spokes" {
		t.Errorf("Channel() = %q", got)
	}
	if got := b.SourceKey("abc"); got != "rp:source:abc" {
		t.Errorf("SourceKey() = %q", got)
	}
	if got := b.SourcesKey(); got != "rp:sources" {
		t.Errorf("SourcesKey() = %q", got)
	}
}

func TestBus_RegisterUnregister(t *testing.T) {
	bus := newBusForTest(t)
	ctx := context.Background()

	src := session.Source{
		ID:             "src-1",
		Name:           "harbour.mrr",
		Brand:          3,
		Spokes:         2048,
		MaxSpokeLength: 1024,
		PixelDepth:     4,
		Capabilities:   recording.Document{"model": "HALO24"},
		InitialState:   recording.Document{"range": 1852.0},
	}
	if err := bus.Register(ctx, src); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	ids, err := bus.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "src-1" {
		t.Errorf("Sources() = %v, want [src-1]", ids)
	}

	fields, err := bus.Describe(ctx, "src-1")
	if err != nil {
		t.Fatal(err)
	}
	if fields["name"] != "harbour.mrr" {
		t.Errorf("name = %q", fields["name"])
	}
	if n, err := ParseUint(fields, "spokes"); err != nil || n != 2048 {
		t.Errorf("spokes = %d, %v", n, err)
	}
	var caps map[string]any
	if err := json.Unmarshal([]byte(fields["capabilities"]), &caps); err != nil || caps["model"] != "HALO24" {
		t.Errorf("capabilities = %q (%v)", fields["capabilities"], err)
	}
	if fields["spokes_stream"] != "test:src-1.spokes" {
		t.Errorf("spokes_stream = %q", fields["spokes_stream"])
	}

	if err := bus.Unregister(ctx, "src-1"); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}
	ids, _ = bus.Sources(ctx)
	if len(ids) != 0 {
		t.Errorf("Sources() after Unregister = %v", ids)
	}
	if fields, _ := bus.Describe(ctx, "src-1"); fields != nil {
		t.Errorf("Describe() after Unregister = %v", fields)
	}
}

func TestBus_Publish(t *testing.T) {
	bus := newBusForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := bus.Subscribe(ctx, "src-1.spokes")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil { // subscription confirmation
		t.Fatalf("Receive() error: %v", err)
	}

	if err := bus.Publish("src-1.spokes", []byte{0x00, 0x7f, 0xff}); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage() error: %v", err)
	}
	if msg.Channel != "test:src-1.spokes" {
		t.Errorf("Channel = %q", msg.Channel)
	}
	if msg.Payload != "\x00\x7f\xff" {
		t.Errorf("Payload = %x", msg.Payload)
	}
}

func TestBus_WithSessionManager(t *testing.T) {
	bus := newBusForTest(t)
	ctx := context.Background()

	buf, err := recording.Encode(recording.Header{SpokesPerRevolution: 360}, nil, nil,
		[]recording.Frame{{TimestampMs: 1, Data: []byte("a")}}, recording.EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}

	m := session.NewManager(session.Options{Registry: bus, Publisher: bus})
	res, err := m.Load(ctx, "a.mrr", buf)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if fields, _ := bus.Describe(ctx, res.ID); fields == nil {
		t.Fatal("loaded source not in redis")
	}

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if ids, _ := bus.Sources(ctx); len(ids) != 0 {
		t.Errorf("Sources() after Stop = %v", ids)
	}
}
