package bot

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/campus"
	"dorm-electricity/internal/metrics"
	"dorm-electricity/internal/model"
	"dorm-electricity/internal/ratelimit"
	"dorm-electricity/internal/schedule"
)

// Notifier delivers a message to a chat identity.
type Notifier interface {
	Send(ctx context.Context, id model.Identity, text string)
}

// Router maps chat commands onto the core operations. Every reply is a plain
// user-facing string; malformed input never surfaces as an internal error.
type Router struct {
	Service   *Service
	Bindings  BindingStore
	Schedules ScheduleStore
	Limiter   *ratelimit.Limiter
	Jobs      *schedule.Scheduler
	Notifier  Notifier

	loc *time.Location
	log *logrus.Entry
}

func NewRouter(svc *Service, bindings BindingStore, schedules ScheduleStore,
	limiter *ratelimit.Limiter, jobs *schedule.Scheduler, notifier Notifier,
	loc *time.Location, log *logrus.Logger) *Router {
	return &Router{
		Service:   svc,
		Bindings:  bindings,
		Schedules: schedules,
		Limiter:   limiter,
		Jobs:      jobs,
		Notifier:  notifier,
		loc:       loc,
		log:       log.WithField("component", "router"),
	}
}

// Dispatch handles one chat message and delivers the reply.
func (r *Router) Dispatch(ctx context.Context, id model.Identity, text string) {
	reply := r.Handle(ctx, id, text)
	if reply != "" {
		r.Notifier.Send(ctx, id, reply)
	}
}

// Handle executes the command in a message and returns the reply text.
func (r *Router) Handle(ctx context.Context, id model.Identity, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "Empty command. Send \"help\" for usage."
	}
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	var (
		reply string
		err   error
	)
	switch cmd {
	case "query", "balance":
		reply, err = r.handleQuery(ctx, id, args)
	case "bind":
		reply, err = r.handleBind(ctx, id, args)
	case "unbind":
		reply, err = r.handleUnbind(ctx, id)
	case "schedule":
		reply, err = r.handleSchedule(ctx, id, args)
	case "unschedule":
		reply, err = r.handleUnschedule(ctx, id)
	case "trend":
		reply, err = r.handleTrend(ctx, id)
	case "clear":
		reply, err = r.handleClear(ctx, id)
	case "help":
		reply = helpText
	default:
		return "Unknown command \"" + cmd + "\". Send \"help\" for usage."
	}

	if err != nil {
		return r.errorReply(id, cmd, err)
	}
	return reply
}

// errorReply translates the error taxonomy into user-facing text. Validation
// and not-found errors are reported verbatim; upstream failures become a
// generic "try again later"; anything else is an internal failure that is
// logged but not exposed.
func (r *Router) errorReply(id model.Identity, cmd string, err error) string {
	var verr ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}

	var uerr *campus.Error
	if errors.As(err, &uerr) {
		if uerr.Kind == campus.ErrNotFound {
			return uerr.Message
		}
		r.log.WithError(err).WithFields(logrus.Fields{
			"identity": id.Key(),
			"command":  cmd,
		}).Warn("upstream query failed")
		return "Balance query failed, please try again later."
	}

	r.log.WithError(err).WithFields(logrus.Fields{
		"identity": id.Key(),
		"command":  cmd,
	}).Error("command failed")
	return "Something went wrong, please try again later."
}

func (r *Router) handleQuery(ctx context.Context, id model.Identity, args []string) (string, error) {
	switch len(args) {
	case 0:
		binding, err := r.requireBinding(ctx, id)
		if err != nil {
			return "", err
		}
		return r.queryBalance(ctx, id, binding.Room)
	case 1:
		buildings, err := r.Service.Fetcher.Buildings(ctx, args[0])
		if err != nil {
			return "", err
		}
		names := make([]string, len(buildings))
		for i, b := range buildings {
			names[i] = b.Name
		}
		return formatBuildings(args[0], names), nil
	case 3:
		key := model.RoomKey{Campus: args[0], Building: args[1], Room: args[2]}
		return r.queryBalance(ctx, id, key)
	default:
		return "", validationf("Usage: query, query <campus>, or query <campus> <building> <room>")
	}
}

func (r *Router) queryBalance(ctx context.Context, id model.Identity, key model.RoomKey) (string, error) {
	if !r.Limiter.Allow(id) {
		metrics.RateLimited.Inc()
		return "", validationf("Query limit reached, please try again later.")
	}
	reading, res, err := r.Service.QueryRoom(ctx, key, "manual")
	if err != nil {
		return "", err
	}
	return formatBalance(key, reading, res, r.loc), nil
}

func (r *Router) handleBind(ctx context.Context, id model.Identity, args []string) (string, error) {
	if len(args) != 3 {
		return "", validationf("Usage: bind <campus> <building> <room>")
	}
	key := model.RoomKey{Campus: args[0], Building: args[1], Room: args[2]}

	// Validate the room location against the live directory before saving.
	buildings, err := r.Service.Fetcher.Buildings(ctx, key.Campus)
	if err != nil {
		return "", err
	}
	known := false
	for _, b := range buildings {
		if b.Name == key.Building {
			known = true
			break
		}
	}
	if !known {
		return "", validationf("Unknown building %q in campus %s. Send \"query %s\" to list buildings.",
			key.Building, key.Campus, key.Campus)
	}

	// A previous binding for this identity is replaced; its schedule does not
	// carry over to the new room.
	if old, err := r.Bindings.BindingByIdentity(ctx, id); err != nil {
		return "", err
	} else if old != nil {
		r.Jobs.Remove(old.ID)
	}

	binding := &model.Binding{Identity: id, Room: key}
	if err := r.Bindings.SaveBinding(ctx, binding); err != nil {
		return "", err
	}
	return "Bound to " + key.Campus + " " + key.Building + " " + key.Room + ".", nil
}

func (r *Router) handleUnbind(ctx context.Context, id model.Identity) (string, error) {
	binding, err := r.Bindings.BindingByIdentity(ctx, id)
	if err != nil {
		return "", err
	}
	if binding == nil {
		return "No room is bound, nothing to do.", nil
	}

	r.Jobs.Remove(binding.ID)
	if err := r.Bindings.DeleteBinding(ctx, binding.ID); err != nil {
		return "", err
	}
	return "Unbound. Any daily notification was cancelled as well.", nil
}

func (r *Router) handleSchedule(ctx context.Context, id model.Identity, args []string) (string, error) {
	if len(args) != 1 {
		return "", validationf("Usage: schedule HH:MM (for example: schedule 08:00)")
	}
	hour, minute, err := parseTimeOfDay(args[0])
	if err != nil {
		return "", err
	}

	binding, err := r.requireBinding(ctx, id)
	if err != nil {
		return "", err
	}

	existing, err := r.Schedules.ScheduleForBinding(ctx, binding.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", validationf("A daily notification is already set for %s. Send \"unschedule\" first to change it.",
			existing.TimeOfDay())
	}

	entry := &model.ScheduleEntry{BindingID: binding.ID, Hour: hour, Minute: minute}
	if err := r.Schedules.SaveSchedule(ctx, entry); err != nil {
		return "", err
	}
	r.Jobs.Add(ctx, binding.ID, hour, minute)
	return "Daily balance notification set for " + entry.TimeOfDay() + ".", nil
}

func (r *Router) handleUnschedule(ctx context.Context, id model.Identity) (string, error) {
	binding, err := r.requireBinding(ctx, id)
	if err != nil {
		return "", err
	}
	existing, err := r.Schedules.ScheduleForBinding(ctx, binding.ID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "No daily notification is set.", nil
	}

	r.Jobs.Remove(binding.ID)
	if err := r.Schedules.DeleteSchedule(ctx, binding.ID); err != nil {
		return "", err
	}
	return "Daily notification cancelled.", nil
}

func (r *Router) handleTrend(ctx context.Context, id model.Identity) (string, error) {
	binding, err := r.requireBinding(ctx, id)
	if err != nil {
		return "", err
	}
	reports, err := r.Service.TrendReport(ctx, binding.Room)
	if err != nil {
		return "", err
	}
	return formatTrend(binding.Room, reports, r.loc), nil
}

func (r *Router) handleClear(ctx context.Context, id model.Identity) (string, error) {
	binding, err := r.requireBinding(ctx, id)
	if err != nil {
		return "", err
	}
	if err := r.Service.History.ClearHistory(ctx, binding.Room); err != nil {
		return "", err
	}
	return "Reading history cleared for " + binding.Room.String() + ".", nil
}

func (r *Router) requireBinding(ctx context.Context, id model.Identity) (*model.Binding, error) {
	binding, err := r.Bindings.BindingByIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, validationf("No room is bound yet. Send \"bind <campus> <building> <room>\" first.")
	}
	return binding, nil
}

// RunScheduled is the daily job body: query the bound room and deliver the
// notification. A binding deleted since scheduling is logged and skipped.
func (r *Router) RunScheduled(ctx context.Context, bindingID string) {
	binding, err := r.Bindings.BindingByID(ctx, bindingID)
	if err != nil {
		metrics.ScheduledRuns.WithLabelValues("error").Inc()
		r.log.WithError(err).WithField("binding", bindingID).Error("scheduled run: load binding")
		return
	}
	if binding == nil {
		metrics.ScheduledRuns.WithLabelValues("orphaned").Inc()
		r.log.WithField("binding", bindingID).Warn("scheduled run: binding no longer exists")
		return
	}

	reading, res, err := r.Service.QueryRoom(ctx, binding.Room, "scheduled")
	if err != nil {
		metrics.ScheduledRuns.WithLabelValues("error").Inc()
		r.log.WithError(err).WithFields(logrus.Fields{
			"binding": bindingID,
			"room":    binding.Room.String(),
		}).Error("scheduled run failed")
		return
	}

	text := "[scheduled] " + formatBalance(binding.Room, reading, res, r.loc)
	r.Notifier.Send(ctx, binding.Identity, text)
	metrics.ScheduledRuns.WithLabelValues("ok").Inc()
}

// RestoreSchedules re-registers every persisted schedule, called once at
// startup.
func (r *Router) RestoreSchedules(ctx context.Context) (int, error) {
	entries, err := r.Schedules.Schedules(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		r.Jobs.Add(ctx, e.BindingID, e.Hour, e.Minute)
	}
	return len(entries), nil
}

var timeOfDayPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// parseTimeOfDay parses a strict 24h HH:MM string.
func parseTimeOfDay(s string) (int, int, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, validationf("Invalid time %q, expected HH:MM in 24h format.", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, validationf("Invalid time %q, expected HH:MM in 24h format.", s)
	}
	return hour, minute, nil
}
