package bot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/model"
)

// In-memory collaborators mirroring the store and gateway contracts.

type memHistory struct {
	mu     sync.Mutex
	series map[string][]model.Reading
}

func newMemHistory() *memHistory {
	return &memHistory{series: make(map[string][]model.Reading)}
}

func (m *memHistory) AppendReading(_ context.Context, key model.RoomKey, r model.Reading) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.series[key.String()]
	if len(s) > 0 && s[len(s)-1].Value == r.Value {
		return false, nil
	}
	m.series[key.String()] = append(s, r)
	return true, nil
}

func (m *memHistory) Series(_ context.Context, key model.RoomKey) ([]model.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Reading(nil), m.series[key.String()]...), nil
}

func (m *memHistory) ClearHistory(_ context.Context, key model.RoomKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.series, key.String())
	return nil
}

type memBindings struct {
	mu       sync.Mutex
	byID     map[string]*model.Binding
	schedule *memSchedules
}

func newMemBindings(schedules *memSchedules) *memBindings {
	return &memBindings{byID: make(map[string]*model.Binding), schedule: schedules}
}

func (m *memBindings) BindingByIdentity(_ context.Context, id model.Identity) (*model.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byID {
		if b.Identity == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memBindings) BindingByID(_ context.Context, bindingID string) (*model.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.byID[bindingID]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (m *memBindings) SaveBinding(_ context.Context, b *model.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	for id, old := range m.byID {
		if old.Identity == b.Identity {
			delete(m.byID, id)
			if m.schedule != nil {
				delete(m.schedule.byBinding, id)
			}
		}
	}
	copied := *b
	m.byID[b.ID] = &copied
	return nil
}

func (m *memBindings) DeleteBinding(_ context.Context, bindingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, bindingID)
	if m.schedule != nil {
		delete(m.schedule.byBinding, bindingID)
	}
	return nil
}

type memSchedules struct {
	mu        sync.Mutex
	byBinding map[string]*model.ScheduleEntry
}

func newMemSchedules() *memSchedules {
	return &memSchedules{byBinding: make(map[string]*model.ScheduleEntry)}
}

func (m *memSchedules) ScheduleForBinding(_ context.Context, bindingID string) (*model.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byBinding[bindingID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (m *memSchedules) SaveSchedule(_ context.Context, e *model.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	copied := *e
	m.byBinding[e.BindingID] = &copied
	return nil
}

func (m *memSchedules) DeleteSchedule(_ context.Context, bindingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byBinding, bindingID)
	return nil
}

func (m *memSchedules) Schedules(_ context.Context) ([]model.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []model.ScheduleEntry
	for _, e := range m.byBinding {
		entries = append(entries, *e)
	}
	return entries, nil
}

// fakeFetcher serves scripted balances keyed by room.
type fakeFetcher struct {
	mu        sync.Mutex
	campuses  []string
	buildings map[string][]campus.Building
	balances  map[string][]float64 // consumed front to back, last value repeats
	err       error
	clock     time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		campuses: []string{"north", "south"},
		buildings: map[string][]campus.Building{
			"north": {{Name: "Hall A", ID: "1"}, {Name: "Hall B", ID: "2"}},
			"south": {{Name: "Hall C", ID: "3"}},
		},
		balances: make(map[string][]float64),
		clock:    time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func (f *fakeFetcher) CampusNames() []string { return f.campuses }

func (f *fakeFetcher) Buildings(_ context.Context, campusName string) ([]campus.Building, error) {
	if f.err != nil {
		return nil, f.err
	}
	bs, ok := f.buildings[campusName]
	if !ok {
		return nil, &campus.Error{Kind: campus.ErrNotFound, Message: "unknown campus " + campusName}
	}
	return bs, nil
}

func (f *fakeFetcher) FetchReading(_ context.Context, key model.RoomKey) (model.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Reading{}, f.err
	}
	vals := f.balances[key.String()]
	if len(vals) == 0 {
		return model.Reading{}, &campus.Error{Kind: campus.ErrNotFound, Message: "room not found"}
	}
	v := vals[0]
	if len(vals) > 1 {
		f.balances[key.String()] = vals[1:]
	}
	f.clock = f.clock.Add(time.Hour)
	return model.Reading{Time: f.clock, Value: v}, nil
}

// recordingNotifier captures outbound messages.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	id   model.Identity
	text string
}

func (n *recordingNotifier) Send(_ context.Context, id model.Identity, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{id: id, text: text})
}
