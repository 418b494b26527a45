package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/model"
	"dorm-electricity/internal/ratelimit"
	"dorm-electricity/internal/schedule"
)

type routerFixture struct {
	router   *Router
	history  *memHistory
	bindings *memBindings
	entries  *memSchedules
	fetcher  *fakeFetcher
	notifier *recordingNotifier
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	history := newMemHistory()
	entries := newMemSchedules()
	bindings := newMemBindings(entries)
	fetcher := newFakeFetcher()
	// HallA has no space in its name so it is addressable in commands.
	fetcher.buildings["north"] = append(fetcher.buildings["north"], campus.Building{Name: "HallA", ID: "9"})
	notifier := &recordingNotifier{}
	jobs := schedule.New(func(context.Context, string) {}, time.UTC, log)
	t.Cleanup(jobs.Stop)

	svc := NewService(history, fetcher, log)
	router := NewRouter(svc, bindings, entries, ratelimit.New(100, time.Hour),
		jobs, notifier, time.UTC, log)

	return &routerFixture{
		router:   router,
		history:  history,
		bindings: bindings,
		entries:  entries,
		fetcher:  fetcher,
		notifier: notifier,
	}
}

var testUser = model.UserIdentity("1001")

func TestQueryArgForms(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "query north HallA")
	assert.Contains(t, reply, "Usage: query")

	reply = f.router.Handle(ctx, testUser, "query north HallA A544")
	assert.Equal(t, "room not found", reply)

	reply = f.router.Handle(ctx, testUser, "query")
	assert.Contains(t, reply, "No room is bound yet")
}

func TestQuerySpecificRoom(t *testing.T) {
	f := newRouterFixture(t)
	f.fetcher.balances["north/HallA/A544"] = []float64{47.35}

	reply := f.router.Handle(context.Background(), testUser, "query north HallA A544")
	assert.Contains(t, reply, "Electricity balance for north HallA A544")
	assert.Contains(t, reply, "Remaining: 47.35 kWh")
	assert.NotContains(t, reply, "Estimated depletion")
}

func TestListBuildings(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "query north")
	assert.Contains(t, reply, "Buildings in north:")
	assert.Contains(t, reply, "Hall A")
	assert.Contains(t, reply, "Hall B")

	reply = f.router.Handle(ctx, testUser, "query west")
	assert.Equal(t, "unknown campus west", reply)
}

func TestBindValidatesBuilding(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "bind north A544")
	assert.Contains(t, reply, "Usage: bind")

	reply = f.router.Handle(ctx, testUser, "bind north Nowhere A544")
	assert.Contains(t, reply, `Unknown building "Nowhere"`)

	reply = f.router.Handle(ctx, testUser, "bind north HallA A544")
	assert.Equal(t, "Bound to north HallA A544.", reply)
}

func TestBoundQueryPredictsAfterFallingReadings(t *testing.T) {
	f := newRouterFixture(t)
	f.fetcher.balances["north/HallA/A544"] = []float64{80, 70, 60}
	ctx := context.Background()

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA A544"), "Bound")

	// First reading alone cannot support a prediction.
	reply := f.router.Handle(ctx, testUser, "query")
	assert.Contains(t, reply, "Remaining: 80.00 kWh")
	assert.NotContains(t, reply, "Estimated depletion")

	f.router.Handle(ctx, testUser, "query")
	reply = f.router.Handle(ctx, testUser, "query")
	assert.Contains(t, reply, "Remaining: 60.00 kWh")
	assert.Contains(t, reply, "Estimated depletion:")
}

func TestBindReplacesBindingAndDropsSchedule(t *testing.T) {
	f := newRouterFixture(t)
	f.fetcher.balances["north/HallA/A544"] = []float64{80}
	ctx := context.Background()

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA A544"), "Bound")
	require.Contains(t, f.router.Handle(ctx, testUser, "schedule 08:00"), "set for 08:00")
	require.Equal(t, 1, f.router.Jobs.Len())

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA B101"), "Bound to north HallA B101")

	entries, err := f.entries.Schedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "schedule must not carry over to the new room")
	assert.Equal(t, 0, f.router.Jobs.Len())

	binding, err := f.bindings.BindingByIdentity(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, "B101", binding.Room.Room)
}

func TestScheduleConflictAndUnschedule(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "schedule 08:00")
	assert.Contains(t, reply, "No room is bound yet")

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA A544"), "Bound")

	reply = f.router.Handle(ctx, testUser, "schedule 08:00")
	assert.Equal(t, "Daily balance notification set for 08:00.", reply)

	reply = f.router.Handle(ctx, testUser, "schedule 09:00")
	assert.Contains(t, reply, "already set for 08:00")

	reply = f.router.Handle(ctx, testUser, "unschedule")
	assert.Equal(t, "Daily notification cancelled.", reply)
	assert.Equal(t, 0, f.router.Jobs.Len())

	reply = f.router.Handle(ctx, testUser, "unschedule")
	assert.Equal(t, "No daily notification is set.", reply)
}

func TestUnbindCascadesSchedule(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "unbind")
	assert.Equal(t, "No room is bound, nothing to do.", reply)

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA A544"), "Bound")
	require.Contains(t, f.router.Handle(ctx, testUser, "schedule 20:30"), "set for 20:30")

	reply = f.router.Handle(ctx, testUser, "unbind")
	assert.Contains(t, reply, "Unbound")

	entries, err := f.entries.Schedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, f.router.Jobs.Len())
}

func TestRateLimitedQuery(t *testing.T) {
	f := newRouterFixture(t)
	f.router.Limiter = ratelimit.New(2, time.Hour)
	f.fetcher.balances["north/HallA/A1"] = []float64{50, 40, 30}
	ctx := context.Background()

	assert.Contains(t, f.router.Handle(ctx, testUser, "query north HallA A1"), "Remaining")
	assert.Contains(t, f.router.Handle(ctx, testUser, "query north HallA A1"), "Remaining")
	assert.Equal(t, "Query limit reached, please try again later.",
		f.router.Handle(ctx, testUser, "query north HallA A1"))

	// Building listings are cheap and not rate limited.
	assert.Contains(t, f.router.Handle(ctx, testUser, "query north"), "Buildings in north:")

	// Other identities have independent budgets.
	other := model.GroupIdentity("42")
	assert.Contains(t, f.router.Handle(ctx, other, "query north HallA A1"), "Remaining")
}

func TestTrendAndClear(t *testing.T) {
	f := newRouterFixture(t)
	f.fetcher.balances["north/HallA/A544"] = []float64{80, 70, 90, 85}
	ctx := context.Background()

	require.Contains(t, f.router.Handle(ctx, testUser, "bind north HallA A544"), "Bound")

	reply := f.router.Handle(ctx, testUser, "trend")
	assert.Contains(t, reply, "No readings recorded yet")

	for i := 0; i < 4; i++ {
		f.router.Handle(ctx, testUser, "query")
	}

	reply = f.router.Handle(ctx, testUser, "trend")
	assert.Contains(t, reply, "Discharge trend for north HallA A544")
	assert.Contains(t, reply, "Segment 1:")
	assert.Contains(t, reply, "Segment 2:")
	assert.Contains(t, reply, "Estimated depletion:")

	reply = f.router.Handle(ctx, testUser, "clear")
	assert.Equal(t, "Reading history cleared for north/HallA/A544.", reply)

	reply = f.router.Handle(ctx, testUser, "trend")
	assert.Contains(t, reply, "No readings recorded yet")
}

func TestUpstreamErrorReplies(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.fetcher.err = &campus.Error{Kind: campus.ErrNetwork, Message: "connect timeout"}
	reply := f.router.Handle(ctx, testUser, "query north HallA A1")
	assert.Equal(t, "Balance query failed, please try again later.", reply)

	f.fetcher.err = &campus.Error{Kind: campus.ErrParse, Message: "no balance in response"}
	reply = f.router.Handle(ctx, testUser, "query north HallA A1")
	assert.Equal(t, "Balance query failed, please try again later.", reply)
}

func TestScheduleTimeValidation(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"08:00", true},
		{"8:00", true},
		{"23:59", true},
		{"0:05", true},
		{"24:00", false},
		{"12:60", false},
		{"12", false},
		{"12:5", false},
		{"ab:cd", false},
		{"12:00:00", false},
		{"-1:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			hour, minute, err := parseTimeOfDay(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Less(t, hour, 24)
			assert.Less(t, minute, 60)
		})
	}
}

func TestHelpAndUnknown(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	reply := f.router.Handle(ctx, testUser, "help")
	assert.Contains(t, reply, "bind <campus> <building> <room>")

	reply = f.router.Handle(ctx, testUser, "/help")
	assert.Contains(t, reply, "bind <campus> <building> <room>")

	reply = f.router.Handle(ctx, testUser, "frobnicate")
	assert.Contains(t, reply, `Unknown command "frobnicate"`)

	reply = f.router.Handle(ctx, testUser, "   ")
	assert.Contains(t, reply, "Empty command")
}

func TestDispatchSendsReply(t *testing.T) {
	f := newRouterFixture(t)

	f.router.Dispatch(context.Background(), testUser, "help")
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, testUser, f.notifier.sent[0].id)
	assert.True(t, strings.HasPrefix(f.notifier.sent[0].text, "Commands:"))
}

func TestRunScheduledDeliversNotification(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	binding := &model.Binding{Identity: testUser, Room: model.RoomKey{Campus: "north", Building: "HallA", Room: "A544"}}
	require.NoError(t, f.bindings.SaveBinding(ctx, binding))
	f.fetcher.balances[binding.Room.String()] = []float64{80}

	f.router.RunScheduled(ctx, binding.ID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, testUser, f.notifier.sent[0].id)
	assert.True(t, strings.HasPrefix(f.notifier.sent[0].text, "[scheduled] "))
	assert.Contains(t, f.notifier.sent[0].text, "Remaining: 80.00 kWh")
}

func TestRunScheduledOrphanedBinding(t *testing.T) {
	f := newRouterFixture(t)

	f.router.RunScheduled(context.Background(), "no-such-binding")
	assert.Empty(t, f.notifier.sent)
}

func TestRestoreSchedules(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, f.entries.SaveSchedule(ctx, &model.ScheduleEntry{BindingID: "b1", Hour: 8, Minute: 0}))
	require.NoError(t, f.entries.SaveSchedule(ctx, &model.ScheduleEntry{BindingID: "b2", Hour: 20, Minute: 30}))

	n, err := f.router.RestoreSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.router.Jobs.Len())
}
