package redisbus

import (
	"context"
	"testing"

	testcontainers "github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

// skipWithoutDocker skips t when no container provider is reachable. The
// provider lookup panics on hosts without a Docker socket.
func skipWithoutDocker(t *testing.T) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker unavailable: %v", r)
		}
	}()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func newBusForTest(t *testing.T) *Bus {
	t.Helper()
	skipWithoutDocker(t)

	ctx := context.Background()
	container, err := rediscontainer.Run(ctx, "redis:7.2-alpine")
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("container mapped port: %v", err)
	}

	bus, err := New(ctx, Config{Addr: host + ":" + port.Port(), Prefix: "test:"})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("New() error: %v", err)
	}

	t.Cleanup(func() {
		_ = bus.Close()
		_ = container.Terminate(context.Background())
	})
	return bus
}
