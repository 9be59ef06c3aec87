//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/navigation"
	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/storage"
)

func TestPublicAPIMemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := goEMS.DefaultConfig()
	cfg.Storage.Backend = goEMS.StorageMemory
	cfg.Realtime.Enabled = false

	mem := storage.NewMemoryBackend()
	c, err := goEMS.New().WithConfig(cfg).WithBackend(mem).Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()

	if c.Menu() != nil {
		t.Fatal("anonymous session has a menu")
	}
	if err := c.CheckIn(ctx, time.Now(), nil); !errors.Is(err, goEMS.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if err := c.Login(ctx, nil, ""); !errors.Is(err, goEMS.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}

	if err := c.Login(ctx, &session.User{ID: "u1", Role: string(navigation.Employee)}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := len(c.Menu()); got != 6 {
		t.Fatalf("expected employee menu of 6, got %d", got)
	}
	if mem.Len() != 2 {
		t.Fatalf("expected user and flag persisted, got keys %v", mem.Keys())
	}

	c.Logout(ctx)
	if mem.Len() != 0 {
		t.Fatalf("expected empty backend after logout, got %v", mem.Keys())
	}
}

func TestPublicAPIBuilderRejectsReuse(t *testing.T) {
	cfg := goEMS.DefaultConfig()
	cfg.Storage.Backend = goEMS.StorageMemory
	cfg.Realtime.Enabled = false

	b := goEMS.New().WithConfig(cfg)
	c, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(context.Background()); !errors.Is(err, goEMS.ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}
