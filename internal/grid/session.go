package grid

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/carrier-dashboard/backend/internal/metrics"
	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxSessions limits concurrent grid views; the least recently used one is evicted beyond it.
const MaxSessions = 64

// SessionKeepAliveWindow protects recently used sessions from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("grid: session not found")
	ErrRowNotFound     = errors.New("grid: row not found")
	ErrNoDetail        = errors.New("grid: no row detail is open")
	ErrNotEditing      = errors.New("grid: detail is not in edit mode")
	ErrUnknownField    = errors.New("grid: unknown field")
	ErrInvalidSort     = errors.New("grid: invalid sort")
)

// Query changes the view state of a grid session. Zero values leave the state unchanged.
type Query struct {
	SortField string
	SortOrder models.SortOrder
	PageSize  int
	Page      *int   // zero-based
	GoTo      string // one-based free text, applied after Page
}

// row is a grid row with the identity it was given when the session opened.
type row struct {
	id  string
	rec models.Record
}

// state is the local state of one grid view. Edits live here and nowhere else.
type state struct {
	info  models.GridSession
	rows  []row
	draft *models.Record
}

// Manager holds the grid view sessions.
type Manager struct {
	sessions        map[string]*state
	mu              sync.RWMutex
	logger          *zap.Logger
	metrics         *metrics.Metrics
	defaultPageSize int
}

// NewManager creates a session manager. An invalid defaultPageSize falls back to DefaultPageSize.
func NewManager(logger *zap.Logger, m *metrics.Metrics, defaultPageSize int) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !ValidPageSize(defaultPageSize) {
		defaultPageSize = DefaultPageSize
	}
	return &Manager{
		sessions:        make(map[string]*state),
		logger:          logger.Named("grid"),
		metrics:         m,
		defaultPageSize: defaultPageSize,
	}
}

// Open starts a grid view over a private copy of records.
func (m *Manager) Open(records []models.Record) models.GridSession {
	m.evictIfNeeded()

	now := time.Now()
	st := &state{
		info: models.GridSession{
			ID:           uuid.New().String(),
			RowCount:     len(records),
			Sort:         DefaultSort,
			PageSize:     m.defaultPageSize,
			CreatedAt:    now,
			LastAccessed: now,
		},
		rows: make([]row, len(records)),
	}
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		id := rowID(rec, i)
		if _, dup := seen[id]; dup {
			m.logger.Warn("duplicate row id",
				zap.String("id", id),
				zap.Int("position", i))
			id = id + "~" + strconv.Itoa(i)
		}
		seen[id] = struct{}{}
		st.rows[i] = row{id: id, rec: rec.Clone()}
	}
	sortRows(st.rows, st.info.Sort)

	m.mu.Lock()
	m.sessions[st.info.ID] = st
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetGridSessions(n)
	m.logger.Debug("grid session opened", zap.String("session", st.info.ID), zap.Int("rows", len(records)))
	return st.info
}

// rowID identifies a row by its "id" field, falling back to its position. Open suffixes
// repeated ids with the position, as in "7~4".
func rowID(rec models.Record, index int) string {
	if id := rec.ID(); id != "" {
		return id
	}
	return "row-" + strconv.Itoa(index)
}

// Get returns the session state and marks it as used.
func (m *Manager) Get(id string) (models.GridSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.lookup(id)
	if err != nil {
		return models.GridSession{}, err
	}
	return st.info, nil
}

// lookup must be called with m.mu held for writing.
func (m *Manager) lookup(id string) (*state, error) {
	st, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	st.info.LastAccessed = time.Now()
	return st, nil
}

// Page applies q to the session and returns the current page of rows.
func (m *Manager) Page(id string, q Query) (models.GridPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.GridPage{}, err
	}

	if q.SortField != "" || q.SortOrder != "" {
		model := st.info.Sort
		if q.SortField != "" {
			model.Field = q.SortField
		}
		if q.SortOrder != "" {
			model.Sort = q.SortOrder
		}
		if !Sortable(model.Field) || (model.Sort != models.SortAsc && model.Sort != models.SortDesc) {
			return models.GridPage{}, fmt.Errorf("%w: %s %s", ErrInvalidSort, model.Field, model.Sort)
		}
		if model != st.info.Sort {
			sortRows(st.rows, model)
			st.info.Sort = model
		}
	}

	if q.PageSize != 0 {
		if !ValidPageSize(q.PageSize) {
			return models.GridPage{}, fmt.Errorf("%w: %d", ErrInvalidPageSize, q.PageSize)
		}
		st.info.PageSize = q.PageSize
	}

	total := len(st.rows)
	if q.Page != nil {
		st.info.Page = *q.Page
	}
	if q.GoTo != "" {
		page, err := ParseGoToPage(q.GoTo, total, st.info.PageSize)
		if err != nil {
			return models.GridPage{}, err
		}
		st.info.Page = page
	}
	st.info.Page = ClampPage(st.info.Page, total, st.info.PageSize)

	start, end := Window(st.info.Page, total, st.info.PageSize)
	rows := make([]models.Record, 0, end-start)
	rowIDs := make([]string, 0, end-start)
	for _, r := range st.rows[start:end] {
		rows = append(rows, r.rec.Clone())
		rowIDs = append(rowIDs, r.id)
	}

	return models.GridPage{
		Session:   st.info,
		Rows:      rows,
		RowIDs:    rowIDs,
		Total:     total,
		PageCount: PageCount(total, st.info.PageSize),
	}, nil
}

func (st *state) indexOf(rowID string) int {
	for i, r := range st.rows {
		if r.id == rowID {
			return i
		}
	}
	return -1
}

// Row returns a copy of one row as the session currently holds it.
func (m *Manager) Row(id, rowID string) (models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.Record{}, err
	}
	idx := st.indexOf(rowID)
	if idx < 0 {
		return models.Record{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	return st.rows[idx].rec.Clone(), nil
}

// View opens the detail dialog for a row, initialising the form from the row.
func (m *Manager) View(id, rowID string) (models.RowDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.RowDetail{}, err
	}
	idx := st.indexOf(rowID)
	if idx < 0 {
		return models.RowDetail{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	draft := st.rows[idx].rec.Clone()
	st.draft = &draft
	st.info.OpenRowID = rowID
	st.info.Editing = false
	return st.detail(), nil
}

// Detail returns the open dialog.
func (m *Manager) Detail(id string) (models.RowDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.RowDetail{}, err
	}
	if st.draft == nil {
		return models.RowDetail{}, ErrNoDetail
	}
	return st.detail(), nil
}

func (st *state) detail() models.RowDetail {
	fields := make([]models.DetailField, len(st.draft.Fields))
	for i, f := range st.draft.Fields {
		fields[i] = models.DetailField{Key: f.Key, Label: FieldLabel(f.Key), Value: models.TextOf(f.Value)}
	}
	return models.RowDetail{
		RowID:   st.info.OpenRowID,
		Editing: st.info.Editing,
		Fields:  fields,
	}
}

// BeginEdit switches the open dialog into edit mode.
func (m *Manager) BeginEdit(id string) (models.RowDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.RowDetail{}, err
	}
	if st.draft == nil {
		return models.RowDetail{}, ErrNoDetail
	}
	st.info.Editing = true
	return st.detail(), nil
}

// SetFields changes draft values. Edited values are kept as text.
func (m *Manager) SetFields(id string, values map[string]string) (models.RowDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.RowDetail{}, err
	}
	if st.draft == nil {
		return models.RowDetail{}, ErrNoDetail
	}
	if !st.info.Editing {
		return models.RowDetail{}, ErrNotEditing
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if _, ok := st.draft.Get(key); !ok {
			return models.RowDetail{}, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		st.draft.Set(key, values[key])
	}
	return st.detail(), nil
}

// Save commits the draft into the session's row, re-applies the sort and leaves edit mode.
// Nothing is written anywhere else.
func (m *Manager) Save(id string) (models.RowDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return models.RowDetail{}, err
	}
	if st.draft == nil {
		return models.RowDetail{}, ErrNoDetail
	}
	if !st.info.Editing {
		return models.RowDetail{}, ErrNotEditing
	}
	idx := st.indexOf(st.info.OpenRowID)
	if idx < 0 {
		return models.RowDetail{}, fmt.Errorf("%w: %s", ErrRowNotFound, st.info.OpenRowID)
	}
	st.rows[idx].rec = st.draft.Clone()
	// The saved values may move the row under the active sort.
	sortRows(st.rows, st.info.Sort)
	st.info.Editing = false
	m.logger.Info("Saved data",
		zap.String("session", id),
		zap.String("row", st.info.OpenRowID),
		zap.Int("fields", st.draft.Len()))
	return st.detail(), nil
}

// CloseDetail discards the draft and closes the dialog.
func (m *Manager) CloseDetail(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.lookup(id)
	if err != nil {
		return err
	}
	st.draft = nil
	st.info.OpenRowID = ""
	st.info.Editing = false
	return nil
}

// Delete is inert: it records the request and removes nothing. There is no write endpoint
// upstream to delete from.
func (m *Manager) Delete(id, rowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(id); err != nil {
		return err
	}
	m.logger.Info("Delete clicked for row", zap.String("session", id), zap.String("row", rowID))
	return nil
}

// Remove drops a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetGridSessions(n)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictIfNeeded removes the least recently used sessions when at capacity.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < MaxSessions {
		return
	}
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].info.LastAccessed.Before(m.sessions[ids[j]].info.LastAccessed)
	})
	toFree := len(m.sessions) - MaxSessions + 1
	for _, id := range ids[:toFree] {
		delete(m.sessions, id)
		m.logger.Info("evicted grid session", zap.String("session", id))
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but keeps sessions
// used within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)
	removed := 0
	for id, st := range m.sessions {
		if st.info.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if st.info.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.logger.Debug("cleaned up aged grid session",
				zap.String("session", id),
				zap.Duration("idle", time.Since(st.info.LastAccessed).Round(time.Second)))
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetGridSessions(n)
	return removed
}
