package memory

import (
	"testing"

	"github.com/rs/zerolog"

	"studytec-client/internal/app"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()
	client := app.New(app.Options{Logger: zerolog.Nop()})
	defer client.Close()

	registry.Add("s-1", client)
	if got, ok := registry.Get("s-1"); !ok || got != client {
		t.Fatalf("expected session present")
	}
	if registry.Len() != 1 {
		t.Fatalf("expected one session, got %d", registry.Len())
	}

	if _, ok := registry.Remove("s-1"); !ok {
		t.Fatalf("expected remove to find the session")
	}
	if _, ok := registry.Remove("s-1"); ok {
		t.Fatalf("second remove must report absence")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}
