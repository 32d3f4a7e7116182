package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"moonmining/internal/adapters/esi/notification"
	"moonmining/internal/core/extraction"
	"moonmining/internal/core/valuation"
	"moonmining/internal/modkit/repokit"
	"moonmining/internal/platform/store/storetest"
	dom "moonmining/internal/services/extractions/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	refinery int64 = 1000000000001
	moon     int64 = 40161708
	owner    int64 = 98000001
)

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

// memRepo is an in-memory StorageRepo enforcing the (refinery_id, started_at) key
type memRepo struct {
	mu      sync.Mutex
	rows    map[int64]dom.Record
	nextID  int64
	inserts int
	updates int
	valued  int
	// insertErrs are returned by the next Insert calls, in order
	insertErrs []error
}

func newMemRepo() *memRepo { return &memRepo{rows: map[int64]dom.Record{}} }

func (m *memRepo) binder() repokit.Binder[dom.StorageRepo] {
	return repokit.BindFunc[dom.StorageRepo](func(repokit.Queryer) dom.StorageRepo { return m })
}

func copyRecord(r dom.Record) dom.Record {
	r.Products = append([]extraction.Product(nil), r.Products...)
	return r
}

func (m *memRepo) find(pred func(dom.Record) bool) (dom.Record, bool) {
	var (
		best  dom.Record
		found bool
	)
	for _, id := range m.ids() {
		r := m.rows[id]
		if pred(r) && (!found || r.ChunkArrivalAt.After(best.ChunkArrivalAt)) {
			best, found = r, true
		}
	}
	return copyRecord(best), found
}

func (m *memRepo) ids() []int64 {
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memRepo) FindByStartedAt(_ context.Context, refineryID int64, startedAt time.Time) (dom.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.find(func(r dom.Record) bool { return r.RefineryID == refineryID && r.StartedAt.Equal(startedAt) })
	return r, ok, nil
}

func (m *memRepo) FindByChunkArrival(_ context.Context, refineryID int64, at time.Time) (dom.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.find(func(r dom.Record) bool { return r.RefineryID == refineryID && r.ChunkArrivalAt.Equal(at) })
	return r, ok, nil
}

func (m *memRepo) FindLatestOpen(_ context.Context, refineryID int64) (dom.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.find(func(r dom.Record) bool {
		return r.RefineryID == refineryID && r.Status.IsActive() && r.CanceledAt == nil && r.FracturedAt == nil
	})
	return r, ok, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (dom.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return copyRecord(r), ok, nil
}

func (m *memRepo) Insert(_ context.Context, r dom.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		return 0, err
	}
	for _, x := range m.rows {
		if x.RefineryID == r.RefineryID && x.StartedAt.Equal(r.StartedAt) {
			return 0, &pgconn.PgError{Code: "23505", ConstraintName: "extractions_refinery_started_key"}
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.Products = nil
	m.rows[r.ID] = r
	m.inserts++
	return r.ID, nil
}

func (m *memRepo) Update(_ context.Context, r dom.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.rows[r.ID]
	r.Products, r.Value, r.IsJackpot = old.Products, old.Value, old.IsJackpot
	m.rows[r.ID] = r
	m.updates++
	return nil
}

func (m *memRepo) ReplaceProducts(_ context.Context, id int64, products []extraction.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Products = append([]extraction.Product(nil), products...)
	m.rows[id] = r
	return nil
}

func (m *memRepo) SetValuation(_ context.Context, id int64, value *float64, jackpot *bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.rows[id]
	r.Value, r.IsJackpot = value, jackpot
	m.rows[id] = r
	m.valued++
	return nil
}

func (m *memRepo) IDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, id := range m.ids() {
		if id > afterID && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memRepo) all() []dom.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dom.Record, 0, len(m.rows))
	for _, id := range m.ids() {
		out = append(out, copyRecord(m.rows[id]))
	}
	return out
}

// fakeCatalogue prices ores; every ore is a 10 m3 R4 ore unless listed
type fakeCatalogue struct {
	mu     sync.Mutex
	prices map[int64]float64
	types  map[int64]valuation.OreType
}

func (c *fakeCatalogue) OreType(_ context.Context, id int64) (valuation.OreType, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if o, ok := c.types[id]; ok {
		return o, true, nil
	}
	return valuation.OreType{ID: id, GroupID: valuation.GroupUbiquitousMoonAsteroids, UnitVolume: 10}, true, nil
}

func (c *fakeCatalogue) Price(_ context.Context, id int64) (float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[id]
	return p, ok, nil
}

// refreshingCatalogue is a fakeCatalogue behind a price cache
type refreshingCatalogue struct {
	*fakeCatalogue
	refreshed int
	err       error
}

func (c *refreshingCatalogue) Refresh(context.Context) error {
	c.refreshed++
	return c.err
}

func (c *fakeCatalogue) setPrice(id int64, p float64) {
	c.mu.Lock()
	c.prices[id] = p
	c.mu.Unlock()
}

// fakeResolver keeps refinery moons in memory
type fakeResolver struct {
	mu       sync.Mutex
	moons    map[int64]int64
	assigned []int64
	ensured  map[int64]int64
}

func newResolver() *fakeResolver {
	return &fakeResolver{moons: map[int64]int64{}, ensured: map[int64]int64{}}
}

func (r *fakeResolver) EnsureRefinery(_ context.Context, ownerID, refineryID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensured[refineryID] = ownerID
	return nil
}

func (r *fakeResolver) MoonForRefinery(_ context.Context, refineryID int64) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.moons[refineryID]
	return id, ok, nil
}

func (r *fakeResolver) AssignMoon(_ context.Context, refineryID, moonID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.moons[refineryID]; ok {
		return false, nil
	}
	r.moons[refineryID] = moonID
	r.assigned = append(r.assigned, moonID)
	return true, nil
}

// fakeProducts records moon product updates
type fakeProducts struct {
	mu      sync.Mutex
	updates map[int64]extraction.CalculatedExtraction
}

func (p *fakeProducts) UpdateProductsFromExtraction(_ context.Context, moonID int64, x extraction.CalculatedExtraction) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.updates == nil {
		p.updates = map[int64]extraction.CalculatedExtraction{}
	}
	p.updates[moonID] = x
	return true, nil
}

// fakeSource serves events per owner and refinery
type fakeSource struct {
	events map[int64]map[int64][]extraction.Event
	failed map[int64][]notification.Failure
	errs   map[int64]error
}

func (s *fakeSource) Refineries(_ context.Context, ownerID int64) ([]int64, error) {
	if err := s.errs[ownerID]; err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(s.events[ownerID]))
	for id := range s.events[ownerID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *fakeSource) EventsForRefinery(_ context.Context, ownerID, refineryID int64) ([]extraction.Event, []notification.Failure, error) {
	return s.events[ownerID][refineryID], s.failed[refineryID], nil
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	cat      *fakeCatalogue
	resolver *fakeResolver
	products *fakeProducts
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		repo:     newMemRepo(),
		cat:      &fakeCatalogue{prices: map[int64]float64{1: 100, 2: 50}},
		resolver: newResolver(),
		products: &fakeProducts{},
	}
	f.svc = New(storetest.New(), f.repo.binder(), f.cat, Config{Workers: 2, UpsertRetries: 1, RecomputeBatch: 2})
	f.svc.Resolver = f.resolver
	f.svc.Products = f.products
	return f
}

func ev(t *testing.T, id int64, at time.Time, moonID int64, p extraction.Payload) extraction.Event {
	t.Helper()
	e, err := extraction.NewEvent(extraction.Header{RefineryID: refinery, Timestamp: at, MoonID: moonID, NotificationID: id}, p)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return e
}

func started(t *testing.T, id int64, at, ready time.Time, ores extraction.OreVolumes) extraction.Event {
	by := int64(2112625428)
	return ev(t, id, at, moon, extraction.Started{
		ReadyTime: ready, AutoFractureTime: ready.Add(3 * time.Hour), StartedBy: &by, Ores: ores,
	})
}

func finished(t *testing.T, id int64, at time.Time, ores extraction.OreVolumes) extraction.Event {
	return ev(t, id, at, moon, extraction.Finished{AutoFractureTime: at.Add(3 * time.Hour), Ores: ores})
}

func laserFired(t *testing.T, id int64, at time.Time, by int64, ores extraction.OreVolumes) extraction.Event {
	return ev(t, id, at, 0, extraction.LaserFired{FiredBy: &by, Ores: ores})
}

func cancelled(t *testing.T, id int64, at time.Time, by int64) extraction.Event {
	return ev(t, id, at, 0, extraction.Cancelled{CancelledBy: &by})
}
