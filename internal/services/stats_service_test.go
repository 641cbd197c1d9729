package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/core"
	"pokertracker/internal/stats"
	"pokertracker/internal/storage/memory"
)

var statsNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func TestStatsService_ReportAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	statsSvc := NewStatsService(store, time.Minute, quietLogger()).WithClock(func() time.Time { return statsNow })
	sessions := NewSessionService(store, nil, statsSvc, quietLogger())

	for _, s := range []core.Session{
		sessionOn(core.NewDate(2024, 3, 10), 120, "100", "50", "300"),
		sessionOn(core.NewDate(2024, 3, 14), 60, "200", "0", "50"),
		sessionOn(core.NewDate(2023, 1, 1), 60, "10", "0", "10"),
	} {
		if _, err := sessions.Create(ctx, alice, s); err != nil {
			t.Fatal(err)
		}
	}

	report, err := statsSvc.Report(ctx, alice, stats.RangeWeek)
	if err != nil {
		t.Fatal(err)
	}
	if report.Range != stats.RangeWeek || report.Stats.TotalSessions != 2 {
		t.Fatalf("week report = %+v", report.Stats)
	}
	if !report.Stats.TotalProfit.Equal(core.MustMoney("0")) {
		t.Fatalf("total profit = %s, want 0.00", report.Stats.TotalProfit)
	}
	if len(report.Series) != 2 || report.Series[0].Label != "2024-03-10" {
		t.Fatalf("series = %+v", report.Series)
	}

	if _, err := statsSvc.Report(ctx, alice, stats.RangeWeek); err != nil {
		t.Fatal(err)
	}
	if st := statsSvc.Cache().Stats(); st.Hits != 1 {
		t.Fatalf("expected one cache hit, got %+v", st)
	}

	if _, err := sessions.Create(ctx, alice, sessionOn(core.NewDate(2024, 3, 15), 30, "0", "0", "500")); err != nil {
		t.Fatal(err)
	}
	report, err = statsSvc.Report(ctx, alice, stats.RangeWeek)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.TotalSessions != 3 || !report.Stats.TotalProfit.Equal(core.MustMoney("500")) {
		t.Fatalf("report after write should be recomputed, got %+v", report.Stats)
	}

	all, err := statsSvc.Report(ctx, alice, stats.ChartRange("bogus"))
	if err != nil {
		t.Fatal(err)
	}
	if all.Range != stats.RangeAll || all.Stats.TotalSessions != 4 {
		t.Fatalf("unknown range should mean all, got %s with %d sessions", all.Range, all.Stats.TotalSessions)
	}
}

func TestStatsService_ExportIsAscendingAndScoped(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	bob := newUser(t, store, "bob@example.com")
	statsSvc := NewStatsService(store, 0, quietLogger()).WithClock(func() time.Time { return statsNow })
	sessions := NewSessionService(store, nil, statsSvc, quietLogger())

	for _, d := range []core.Date{core.NewDate(2024, 3, 14), core.NewDate(2024, 2, 20), core.NewDate(2024, 3, 1), core.NewDate(2023, 6, 1)} {
		if _, err := sessions.Create(ctx, alice, sessionOn(d, 60, "10", "0", "20")); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := sessions.Create(ctx, bob, sessionOn(core.NewDate(2024, 3, 14), 60, "10", "0", "20")); err != nil {
		t.Fatal(err)
	}

	got, err := statsSvc.Export(ctx, alice, stats.Export30Days)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-02-20", "2024-03-01", "2024-03-14"}
	if len(got) != len(want) {
		t.Fatalf("exported %d sessions, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Date.String() != want[i] || s.OwnerID != alice.UserID {
			t.Fatalf("row %d = %s owned by %s", i, s.Date, s.OwnerID)
		}
	}

	if statsSvc.Cache() != nil {
		t.Fatal("zero ttl should disable the cache")
	}
}

// gatedStore holds the first ListSessions after it has read its snapshot
// until release is closed. It hides the store's session version so only the
// service's own invalidation is under test.
type gatedStore struct {
	inner   *memory.Store
	once    sync.Once
	listed  chan struct{}
	release chan struct{}
}

func newGatedStore(inner *memory.Store) *gatedStore {
	return &gatedStore{inner: inner, listed: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedStore) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	return g.inner.CreateSession(ctx, s)
}

func (g *gatedStore) GetSession(ctx context.Context, owner, id uuid.UUID) (core.Session, error) {
	return g.inner.GetSession(ctx, owner, id)
}

func (g *gatedStore) ListSessions(ctx context.Context, owner uuid.UUID) ([]core.Session, error) {
	sessions, err := g.inner.ListSessions(ctx, owner)
	g.once.Do(func() {
		close(g.listed)
		<-g.release
	})
	return sessions, err
}

func (g *gatedStore) UpdateSession(ctx context.Context, s core.Session) (core.Session, error) {
	return g.inner.UpdateSession(ctx, s)
}

func (g *gatedStore) DeleteSession(ctx context.Context, owner, id uuid.UUID) error {
	return g.inner.DeleteSession(ctx, owner, id)
}

func TestStatsService_WriteDuringComputeIsNotLost(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	alice := newUser(t, inner, "alice@example.com")
	store := newGatedStore(inner)
	statsSvc := NewStatsService(store, time.Minute, quietLogger()).WithClock(func() time.Time { return statsNow })
	sessions := NewSessionService(store, nil, statsSvc, quietLogger())

	type result struct {
		report stats.Report
		err    error
	}
	first := make(chan result, 1)
	go func() {
		report, err := statsSvc.Report(ctx, alice, stats.RangeAll)
		first <- result{report, err}
	}()
	<-store.listed

	if _, err := sessions.Create(ctx, alice, sessionOn(core.NewDate(2024, 3, 15), 60, "0", "0", "500")); err != nil {
		t.Fatal(err)
	}
	close(store.release)

	res := <-first
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.report.Stats.TotalSessions != 0 {
		t.Fatalf("in-flight report read its snapshot before the write, got %d sessions", res.report.Stats.TotalSessions)
	}

	report, err := statsSvc.Report(ctx, alice, stats.RangeAll)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.TotalSessions != 1 || !report.Stats.TotalProfit.Equal(core.MustMoney("500")) {
		t.Fatalf("report after write = %+v, want 1 session and 500 profit", report.Stats)
	}
}

func TestStatsService_SeesWritesFromOtherProcesses(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	alice := newUser(t, store, "alice@example.com")
	clock := func() time.Time { return statsNow }

	server := NewStatsService(store, time.Hour, quietLogger()).WithClock(clock)
	// A second service over the same store stands in for pokerctl or another
	// replica: its invalidation never reaches the server's cache.
	other := NewSessionService(store, nil, NewStatsService(store, 0, quietLogger()).WithClock(clock), quietLogger())

	report, err := server.Report(ctx, alice, stats.RangeMonth)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.TotalSessions != 0 {
		t.Fatalf("empty store reported %d sessions", report.Stats.TotalSessions)
	}

	if _, err := other.Create(ctx, alice, sessionOn(core.NewDate(2024, 3, 12), 90, "100", "0", "250")); err != nil {
		t.Fatal(err)
	}

	report, err = server.Report(ctx, alice, stats.RangeMonth)
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.TotalSessions != 1 || !report.Stats.TotalProfit.Equal(core.MustMoney("150")) {
		t.Fatalf("report after external write = %+v", report.Stats)
	}
	if st := server.Cache().Stats(); st.Hits != 0 {
		t.Fatalf("stale entry was served: %+v", st)
	}
}

func TestStatsService_DefaultClockIsUTC(t *testing.T) {
	svc := NewStatsService(memory.New(), 0, quietLogger())
	if loc := svc.now().Location(); loc != time.UTC {
		t.Fatalf("clock location = %s, want UTC", loc)
	}
}
