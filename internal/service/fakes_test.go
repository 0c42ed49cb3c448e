package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"stockreport/internal/model"
	"stockreport/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Transactions ──────────────────────────────────────────────────────────────

// serialTx runs one transaction at a time, which is what the row lock gives
// concurrent editors of the same report in postgres.
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// ── Reports ───────────────────────────────────────────────────────────────────

type memReports struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*model.Report
	saves   int
	failErr error
}

func newMemReports() *memReports {
	return &memReports{rows: make(map[uuid.UUID]*model.Report)}
}

func cloneReport(r *model.Report) *model.Report {
	c := *r
	c.History = append([]model.HistoryEntry(nil), r.History...)
	return &c
}

func (m *memReports) Create(_ context.Context, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.History == nil {
		r.History = []model.HistoryEntry{}
	}
	m.rows[r.ID] = cloneReport(r)
	return nil
}

func (m *memReports) FindByID(_ context.Context, id uuid.UUID) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	r, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneReport(r), nil
}

func (m *memReports) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	return m.FindByID(ctx, id)
}

func (m *memReports) Save(_ context.Context, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.rows[r.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.saves++
	m.rows[r.ID] = cloneReport(r)
	return nil
}

func (m *memReports) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memReports) matching(filter model.ReportFilter) []model.Report {
	var out []model.Report
	for _, r := range m.rows {
		if filter.ProductName != "" && r.ProductName != filter.ProductName {
			continue
		}
		d := r.EntryDateKey()
		if filter.StartDate != nil && d < filter.StartDate.Format(model.DateLayout) {
			continue
		}
		if filter.EndDate != nil && d > filter.EndDate.Format(model.DateLayout) {
			continue
		}
		out = append(out, *cloneReport(r))
	}
	return out
}

func (m *memReports) List(_ context.Context, filter model.ReportFilter) ([]model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := m.matching(filter)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memReports) SumByProduct(_ context.Context, filter model.ReportFilter) ([]model.ProductTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	sums := map[string]int64{}
	for _, r := range m.matching(filter) {
		sums[r.ProductName] += int64(r.Quantity)
	}
	var out []model.ProductTotal
	for name, total := range sums {
		out = append(out, model.ProductTotal{ProductName: name, TotalQuantity: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantity != out[j].TotalQuantity {
			return out[i].TotalQuantity > out[j].TotalQuantity
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out, nil
}

func (m *memReports) CountByProductName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if strings.EqualFold(r.ProductName, name) {
			n++
		}
	}
	return n, nil
}

func (m *memReports) get(id string) *model.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[uuid.MustParse(id)]
	if !ok {
		return nil
	}
	return cloneReport(r)
}

// ── Products ──────────────────────────────────────────────────────────────────

type memProducts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Product

	// locks records the locking reads made, e.g. "share:Widget", "update:<id>".
	locks []string
}

func newMemProducts(names ...string) *memProducts {
	m := &memProducts{rows: make(map[uuid.UUID]*model.Product)}
	for _, n := range names {
		p := &model.Product{ID: uuid.New(), Name: n, CreatedAt: time.Now()}
		m.rows[p.ID] = p
	}
	return m
}

func (m *memProducts) Create(_ context.Context, p *model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if strings.EqualFold(existing.Name, p.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	c := *p
	m.rows[p.ID] = &c
	return nil
}

func (m *memProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memProducts) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *p
	return &c, nil
}

func (m *memProducts) FindByNameFold(_ context.Context, name string) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if strings.EqualFold(p.Name, name) {
			c := *p
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memProducts) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	m.locks = append(m.locks, "update:"+id.String())
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *memProducts) FindByNameFoldForShare(ctx context.Context, name string) (*model.Product, error) {
	m.mu.Lock()
	m.locks = append(m.locks, "share:"+name)
	m.mu.Unlock()
	return m.FindByNameFold(ctx, name)
}

func (m *memProducts) lockLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locks...)
}

func (m *memProducts) List(_ context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Product, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memProducts) idOf(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.Name == name {
			return p.ID.String()
		}
	}
	return ""
}

// ── Audit ─────────────────────────────────────────────────────────────────────

type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (m *memAudit) Log(_ context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memAudit) List(_ context.Context, page pagination.Params) ([]model.AuditLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := int64(len(m.entries))
	var out []model.AuditLog
	for i := len(m.entries) - 1 - page.Offset; i >= 0 && len(out) < page.Limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, total, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// ── Users ─────────────────────────────────────────────────────────────────────

type memUsers struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[uuid.UUID]*model.User)}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Email == u.Email || existing.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uuid.New()
	c := *u
	m.rows[u.ID] = &c
	return nil
}

func (m *memUsers) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *memUsers) SetPasswordResetOTP(_ context.Context, id uuid.UUID, otpHash *string, expires *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordResetOTP = otpHash
	u.PasswordResetExpires = expires
	u.PasswordResetFails = 0
	return nil
}

func (m *memUsers) IncrementPasswordResetFails(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	u.PasswordResetFails++
	return u.PasswordResetFails, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = passwordHash
	u.PasswordResetOTP = nil
	u.PasswordResetExpires = nil
	u.PasswordResetFails = 0
	return nil
}

// ── Events and clock ──────────────────────────────────────────────────────────

type recordedEvents struct {
	mu     sync.Mutex
	events []string
}

func (r *recordedEvents) Publish(event string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordedEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
