//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	goEMS "github.com/MrEthical07/goEMS"
	"github.com/MrEthical07/goEMS/session"
)

func TestRedisCompat(t *testing.T) {
	for _, mode := range redisModes(t) {
		mode := mode
		t.Run(mode.name, func(t *testing.T) {
			rdb, cleanup := mode.setup(t)
			defer cleanup()

			t.Run("RestartRestoresSession", func(t *testing.T) { testRestartRestoresSession(t, rdb) })
			t.Run("LogoutSurvivesRestart", func(t *testing.T) { testLogoutSurvivesRestart(t, rdb) })
			t.Run("OriginsAreIsolated", func(t *testing.T) { testOriginsAreIsolated(t, rdb) })
			t.Run("KeyLayout", func(t *testing.T) { testKeyLayout(t, rdb) })
			t.Run("CorruptValueResets", func(t *testing.T) { testCorruptValueResets(t, rdb) })
		})
	}
}

func testRestartRestoresSession(t *testing.T, rdb redis.UniversalClient) {
	ctx := context.Background()
	cfg := integrationConfig("restart")
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	first := buildClient(t, rdb, cfg)
	user := &session.User{ID: "u1", Role: "manager", Name: "Mia"}
	if err := first.Login(ctx, user, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := first.CheckIn(ctx, at, &session.AttendanceRecord{ID: "a1"}); err != nil {
		t.Fatalf("check in: %v", err)
	}
	_ = first.Close()

	second := buildClient(t, rdb, cfg)
	st := second.Session()
	if !st.LoggedIn() || st.User.ID != "u1" || st.User.Name != "Mia" {
		t.Fatalf("session not restored: %+v", st)
	}
	if st.LoginTime != "2026-04-01T09:00:00.000Z" {
		t.Fatalf("unexpected login time %q", st.LoginTime)
	}
	if st.AttendanceRecord == nil || st.AttendanceRecord.ID != "a1" {
		t.Fatalf("attendance record not restored: %+v", st.AttendanceRecord)
	}
	if second.MetricsSnapshot().Counters[goEMS.MetricHydrateRestored] != 1 {
		t.Fatal("expected restored hydration counted")
	}
}

func testLogoutSurvivesRestart(t *testing.T, rdb redis.UniversalClient) {
	ctx := context.Background()
	cfg := integrationConfig("logout")

	first := buildClient(t, rdb, cfg)
	if err := first.Login(ctx, &session.User{ID: "u2", Role: "hr"}, "opaque-token"); err != nil {
		t.Fatalf("login: %v", err)
	}
	first.Logout(ctx)
	_ = first.Close()

	second := buildClient(t, rdb, cfg)
	if st := second.Session(); st.LoggedIn() || st.User != nil || st.IsLoggedIn {
		t.Fatalf("expected logged-out state after restart, got %+v", st)
	}
	n, err := rdb.Exists(ctx, "emsit:logout:"+goEMS.TokenKey).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Fatal("token survived logout")
	}
}

func testOriginsAreIsolated(t *testing.T, rdb redis.UniversalClient) {
	ctx := context.Background()

	a := buildClient(t, rdb, integrationConfig("origin-a"))
	if err := a.Login(ctx, &session.User{ID: "ua", Role: "admin"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	b := buildClient(t, rdb, integrationConfig("origin-b"))
	if b.Session().LoggedIn() {
		t.Fatal("origin-b observed origin-a's session")
	}
	b.Logout(ctx)

	again := buildClient(t, rdb, integrationConfig("origin-a"))
	if !again.Session().LoggedIn() {
		t.Fatal("logout in origin-b cleared origin-a")
	}
}

func testKeyLayout(t *testing.T, rdb redis.UniversalClient) {
	ctx := context.Background()
	c := buildClient(t, rdb, integrationConfig("layout"))
	if err := c.Login(ctx, &session.User{ID: "u3", Role: "employee"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	flag, err := rdb.Get(ctx, "emsit:layout:"+session.KeyIsLoggedIn).Result()
	if err != nil {
		t.Fatalf("get flag: %v", err)
	}
	if flag != "true" {
		t.Fatalf("expected JSON true, got %q", flag)
	}
	raw, err := rdb.Get(ctx, "emsit:layout:"+session.KeyUser).Result()
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if raw != `{"id":"u3","role":"employee"}` {
		t.Fatalf("unexpected user encoding %s", raw)
	}
}

func testCorruptValueResets(t *testing.T, rdb redis.UniversalClient) {
	ctx := context.Background()
	prefix := "emsit:corrupt:"
	if err := rdb.Set(ctx, prefix+session.KeyUser, "{not json", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := rdb.Set(ctx, prefix+session.KeyIsLoggedIn, "true", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := buildClient(t, rdb, integrationConfig("corrupt"))
	if c.Session().LoggedIn() {
		t.Fatal("corrupt state hydrated as logged in")
	}
	n, err := rdb.Exists(ctx, prefix+session.KeyUser, prefix+session.KeyIsLoggedIn).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected corrupt keys removed, %d remain", n)
	}
}
