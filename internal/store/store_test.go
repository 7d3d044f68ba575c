package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joelklabo/rcd/internal/cooldown"
)

func TestAlreadyProcessed(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	if seen, err := st.AlreadyProcessed("m1"); err != nil || seen {
		t.Fatalf("first seen unexpected: %v %v", seen, err)
	}
	if seen, _ := st.AlreadyProcessed("m1"); !seen {
		t.Fatalf("second should be seen")
	}
	if _, err := st.AlreadyProcessed(""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestPruneProcessed(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	base := time.Date(2020, 11, 26, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	_, _ = st.AlreadyProcessed("old")
	st.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, _ = st.AlreadyProcessed("new")

	removed, err := st.PruneProcessed(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if seen, _ := st.AlreadyProcessed("new"); !seen {
		t.Fatalf("recent marker should survive")
	}
}

func TestGetOrCreateProfileIsIdempotent(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	var wg sync.WaitGroup
	created := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := st.GetOrCreateProfile(Profile{UID: "u1", ServerID: "s1", Nickname: "alice"})
			if err != nil {
				t.Errorf("get or create: %v", err)
			}
			created <- ok
		}()
	}
	wg.Wait()
	close(created)
	n := 0
	for ok := range created {
		if ok {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected exactly one creation, got %d", n)
	}

	p, err := st.Profile("u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Timezone != DefaultTimezone || p.TimeFormat != DefaultTimeFormat {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.Notify {
		t.Fatalf("master switch should default off")
	}
	if !p.Notifies(cooldown.Hunt) {
		t.Fatalf("type toggles should default on")
	}
}

func TestUpdateProfile(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	if _, err := st.UpdateProfile("missing", func(*Profile) {}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, _, _ = st.GetOrCreateProfile(Profile{UID: "u1", ServerID: "s1"})
	p, err := st.UpdateProfile("u1", func(p *Profile) {
		p.Notify = true
		p.SetNotifies(cooldown.Duel, false)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !p.Notify || p.Notifies(cooldown.Duel) {
		t.Fatalf("update not applied: %+v", p)
	}
	reloaded, _ := st.Profile("u1")
	if reloaded.Notifies(cooldown.Duel) {
		t.Fatalf("update not persisted")
	}
}

func TestRegisterClaimsJoinCode(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	if err := st.AddJoinCode("GOODCODE"); err != nil {
		t.Fatalf("add code: %v", err)
	}
	if _, err := st.Register("s1", "Guild", "BADCODE"); !errors.Is(err, ErrInvalidJoinCode) {
		t.Fatalf("expected invalid join code, got %v", err)
	}
	srv, err := st.Register("s1", "Guild", "GOODCODE")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if srv.Code != "GOODCODE" || !srv.Active {
		t.Fatalf("unexpected server %+v", srv)
	}
	if _, err := st.Register("s2", "Other", "GOODCODE"); !errors.Is(err, ErrInvalidJoinCode) {
		t.Fatalf("claimed code must be rejected, got %v", err)
	}
	codes, _ := st.JoinCodes()
	if len(codes) != 1 || !codes[0].Claimed {
		t.Fatalf("code not marked claimed: %+v", codes)
	}
	if _, err := st.Server("s1"); err != nil {
		t.Fatalf("server lookup: %v", err)
	}
	if _, err := st.Server("s2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyCooldowns(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	now := time.Date(2020, 11, 26, 8, 0, 0, 0, time.UTC)
	err := st.ApplyCooldowns([]cooldown.Update{
		{ProfileID: "u1", Type: cooldown.Daily, After: now.Add(2 * time.Hour)},
		{ProfileID: "u1", Type: cooldown.Hunt, After: now.Add(time.Minute)},
		{ProfileID: "u2", Type: cooldown.Hunt, After: now.Add(time.Hour)},
	}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	rows, err := st.Cooldowns("u1")
	if err != nil {
		t.Fatalf("cooldowns: %v", err)
	}
	if len(rows) != 2 || rows[0].Type != cooldown.Hunt || rows[1].Type != cooldown.Daily {
		t.Fatalf("expected hunt then daily, got %+v", rows)
	}

	if err := st.ApplyCooldowns(nil, []cooldown.Eviction{{ProfileID: "u1", Type: cooldown.Hunt}}); err != nil {
		t.Fatalf("evict: %v", err)
	}
	rows, _ = st.Cooldowns("u1")
	if len(rows) != 1 || rows[0].Type != cooldown.Daily {
		t.Fatalf("eviction not applied: %+v", rows)
	}
	other, _ := st.Cooldowns("u2")
	if len(other) != 1 {
		t.Fatalf("other profile touched: %+v", other)
	}
}

func TestAvailable(t *testing.T) {
	st, cleanup := newTempStore(t)
	defer cleanup()

	now := time.Date(2020, 11, 26, 8, 0, 0, 0, time.UTC)
	for _, uid := range []string{"me", "busy", "free", "expired"} {
		_, _, _ = st.GetOrCreateProfile(Profile{UID: uid, ServerID: "s1"})
	}
	_, _, _ = st.GetOrCreateProfile(Profile{UID: "elsewhere", ServerID: "s2"})
	_ = st.ApplyCooldowns([]cooldown.Update{
		{ProfileID: "busy", Type: cooldown.Dungeon, After: now.Add(time.Hour)},
		{ProfileID: "expired", Type: cooldown.Dungeon, After: now.Add(-time.Hour)},
	}, nil)

	got, err := st.Available("s1", "me", cooldown.Dungeon, now)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(got) != 2 || got[0].UID != "expired" || got[1].UID != "free" {
		t.Fatalf("unexpected available profiles: %+v", got)
	}
}

func newTempStore(t *testing.T) (*Store, func()) {
	t.Helper()
	path := t.TempDir() + "/state.db"
	st, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st, func() { _ = st.Close() }
}
