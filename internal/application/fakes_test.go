package application

import (
	"context"
	"fmt"
	"sync"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

type fakeKVStore struct {
	mu   sync.Mutex
	data map[ports.KVScope]map[string]string
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[ports.KVScope]map[string]string)}
}

func (f *fakeKVStore) Get(_ context.Context, scope ports.KVScope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[scope][key]
	return v, ok, nil
}

func (f *fakeKVStore) Set(_ context.Context, scope ports.KVScope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[scope] == nil {
		f.data[scope] = make(map[string]string)
	}
	f.data[scope][key] = value
	return nil
}

func (f *fakeKVStore) Delete(_ context.Context, scope ports.KVScope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[scope], key)
	return nil
}

type fakeGrid struct {
	mu      sync.Mutex
	header  []string
	rows    [][]string
	notes   map[[2]int]string
	formats []int
}

func newFakeGrid(header []string, rows [][]string) *fakeGrid {
	return &fakeGrid{header: header, rows: rows, notes: make(map[[2]int]string)}
}

func (g *fakeGrid) Read(_ context.Context, _ string) ([]string, [][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	header := append([]string(nil), g.header...)
	rows := make([][]string, len(g.rows))
	for i, r := range g.rows {
		rows[i] = append([]string(nil), r...)
	}
	return header, rows, nil
}

func (g *fakeGrid) Replace(_ context.Context, _ string, header []string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.header = header
	g.rows = rows
	return nil
}

func (g *fakeGrid) UpdateCell(_ context.Context, _ string, row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= len(g.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	for len(g.rows[row]) <= col {
		g.rows[row] = append(g.rows[row], "")
	}
	g.rows[row][col] = value
	return nil
}

func (g *fakeGrid) SetNote(_ context.Context, _ string, row, col int, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notes[[2]int{row, col}] = note
	return nil
}

func (g *fakeGrid) ApplyStatusFormat(_ context.Context, _ string, col, _ int, _ []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.formats = append(g.formats, col)
	return nil
}

func (g *fakeGrid) cell(row, col int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row >= len(g.rows) || col >= len(g.rows[row]) {
		return ""
	}
	return g.rows[row][col]
}

func (g *fakeGrid) note(row, col int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notes[[2]int{row, col}]
}

type fakeCRMClient struct {
	mu       sync.Mutex
	records  []domain.Record
	defs     []domain.FieldDefinition
	fetchErr error
	// failIDs lists remote ids whose update must fail
	failIDs map[string]error
	updates []recordedUpdate
}

type recordedUpdate struct {
	id      string
	payload map[string]any
}

func (f *fakeCRMClient) FetchRecords(_ context.Context, _ domain.EntityType, _ int, _ int) ([]domain.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records, nil
}

func (f *fakeCRMClient) UpdateRecord(_ context.Context, _ domain.EntityType, id string, payload map[string]any) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failIDs[id]; ok {
		return nil, err
	}
	f.updates = append(f.updates, recordedUpdate{id: id, payload: payload})
	return domain.Record{"id": id}, nil
}

func (f *fakeCRMClient) FieldDefinitions(_ context.Context, _ domain.EntityType) ([]domain.FieldDefinition, error) {
	return f.defs, nil
}

type fakeFieldCache struct {
	mu      sync.Mutex
	entries map[domain.EntityType][]domain.FieldDefinition
	clears  int
}

func newFakeFieldCache() *fakeFieldCache {
	return &fakeFieldCache{entries: make(map[domain.EntityType][]domain.FieldDefinition)}
}

func (f *fakeFieldCache) Get(_ context.Context, entity domain.EntityType) ([]domain.FieldDefinition, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defs, ok := f.entries[entity]
	return defs, ok, nil
}

func (f *fakeFieldCache) Put(_ context.Context, entity domain.EntityType, defs []domain.FieldDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entity] = defs
	return nil
}

func (f *fakeFieldCache) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[domain.EntityType][]domain.FieldDefinition)
	f.clears++
	return nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	pulls    int
	pullRows int
	pushOK   int
	pushFail int
}

func (m *fakeMetrics) PullCompleted(_ string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulls++
	m.pullRows += rows
}

func (m *fakeMetrics) PushRow(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.pushOK++
	} else {
		m.pushFail++
	}
}

type fakeProgressSink struct {
	mu     sync.Mutex
	events []ports.ProgressEvent
}

func (s *fakeProgressSink) Publish(event ports.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeProgressSink) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Stage
	}
	return out
}
