// Package notify turns the ephemeral signals of each backend turn into
// user-visible notifications: stage overlays, toasts, consolidated skip
// notices and client-side milestones.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/berth-dev/assessor/internal/model"
)

// Kind classifies a notification.
type Kind string

const (
	KindStage     Kind = "stage"
	KindPhase     Kind = "phase"
	KindProgress  Kind = "progress"
	KindSkip      Kind = "skip"
	KindMilestone Kind = "milestone"
)

// Notification is one user-visible event.
type Notification struct {
	Kind  Kind
	Title string
	Text  string
	Dwell time.Duration // overlays only
}

// Sink displays notifications. Overlay is blocking from the user's point of
// view; the Dispatcher holds the caller for the dwell time after calling it.
type Sink interface {
	Toast(n Notification)
	Overlay(n Notification)
}

// TurnSignals are the notification-bearing fields of one backend turn.
type TurnSignals struct {
	StageChanged    bool
	StageLabel      string
	StageMessage    string
	PhaseMessage    string
	ProgressMessage string
	Skips           []model.SkipNotice
}

// Options tune a Dispatcher. Zero values pick the defaults; a negative
// StageDwell shows overlays without waiting.
type Options struct {
	StageDwell     time.Duration
	ToastBurst     int
	ToastPerSecond float64
	DedupeWindow   time.Duration
	Milestones     map[int]string
	Now            func() time.Time
}

// Default tuning.
const (
	DefaultStageDwell     = 2500 * time.Millisecond
	DefaultToastBurst     = 3
	DefaultToastPerSecond = 0.5
	DefaultDedupeWindow   = 10 * time.Second
)

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	sink   Sink
	dwell  time.Duration
	window time.Duration
	bucket *tokenBucket
	now    func() time.Time

	mu         sync.Mutex
	milestones map[int]string
	fired      map[int]bool
	announced  map[string]bool
	lastText   map[Kind]string
	lastAt     map[Kind]time.Time
	lastStage  string
}

// New creates a Dispatcher writing to sink.
func New(sink Sink, opts Options) *Dispatcher {
	if opts.StageDwell < 0 {
		opts.StageDwell = 0
	} else if opts.StageDwell == 0 {
		opts.StageDwell = DefaultStageDwell
	}
	if opts.ToastBurst <= 0 {
		opts.ToastBurst = DefaultToastBurst
	}
	if opts.ToastPerSecond <= 0 {
		opts.ToastPerSecond = DefaultToastPerSecond
	}
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = DefaultDedupeWindow
	}
	if opts.Milestones == nil {
		opts.Milestones = DefaultMilestones()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Dispatcher{
		sink:       sink,
		dwell:      opts.StageDwell,
		window:     opts.DedupeWindow,
		bucket:     newTokenBucket(float64(opts.ToastBurst), opts.ToastPerSecond, opts.Now),
		now:        opts.Now,
		milestones: opts.Milestones,
		fired:      make(map[int]bool),
		announced:  make(map[string]bool),
		lastText:   make(map[Kind]string),
		lastAt:     make(map[Kind]time.Time),
	}
}

// Turn dispatches every signal of one backend turn in order: stage
// overlay (blocking), phase message, progress message, skip notices.
func (d *Dispatcher) Turn(ctx context.Context, s TurnSignals) error {
	if d.stageChanged(s) {
		if err := d.StageChange(ctx, s.StageLabel, s.StageMessage); err != nil {
			return err
		}
	}
	if s.PhaseMessage != "" {
		d.toast(Notification{Kind: KindPhase, Text: s.PhaseMessage})
	}
	if s.ProgressMessage != "" {
		d.Progress(s.ProgressMessage)
	}
	d.Skips(s.Skips)
	return nil
}

// SeedStage records label as the stage already on screen, so a resumed
// session announces only real changes.
func (d *Dispatcher) SeedStage(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastStage = label
}

// stageChanged reports whether s moves the session to a new stage. An
// explicit flag always counts; otherwise a label change after the first
// observed label does.
func (d *Dispatcher) stageChanged(s TurnSignals) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.lastStage
	if s.StageLabel != "" {
		d.lastStage = s.StageLabel
	}
	if s.StageChanged {
		return true
	}
	return prev != "" && s.StageLabel != "" && s.StageLabel != prev
}

// StageChange shows a full overlay and holds the caller for the dwell
// time. It returns early with ctx.Err() if ctx is cancelled.
func (d *Dispatcher) StageChange(ctx context.Context, label, message string) error {
	title := "New stage"
	if label != "" {
		title = "Stage " + label
	}
	if message == "" {
		message = "Adjusting the next questions to your answers so far."
	}
	d.sink.Overlay(Notification{Kind: KindStage, Title: title, Text: message, Dwell: d.dwell})

	if d.dwell <= 0 {
		return nil
	}
	timer := time.NewTimer(d.dwell)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress shows a transient free-text message.
func (d *Dispatcher) Progress(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.toast(Notification{Kind: KindProgress, Text: text})
}

// Skips shows one toast for all traits in notices that have not been
// announced yet.
func (d *Dispatcher) Skips(notices []model.SkipNotice) {
	if len(notices) == 0 {
		return
	}

	d.mu.Lock()
	var parts []string
	for _, n := range notices {
		key := strings.ToLower(strings.TrimSpace(n.Dimension))
		if key == "" || d.announced[key] {
			continue
		}
		d.announced[key] = true
		parts = append(parts, fmt.Sprintf("%s (%.0f%%)", DisplayName(n.Dimension), n.Confidence))
	}
	d.mu.Unlock()

	if len(parts) == 0 {
		return
	}
	d.sink.Toast(Notification{
		Kind:  KindSkip,
		Title: "Enough answers",
		Text:  "No more questions needed for " + enumerate(parts) + ".",
	})
}

// Milestone shows the canned phrase for answered when it hits a milestone
// for the first time.
func (d *Dispatcher) Milestone(answered int) {
	d.mu.Lock()
	phrase, ok := d.milestones[answered]
	if !ok || d.fired[answered] {
		d.mu.Unlock()
		return
	}
	d.fired[answered] = true
	d.mu.Unlock()

	d.toast(Notification{Kind: KindMilestone, Text: phrase})
}

// toast applies dedupe and throttling before handing n to the sink.
func (d *Dispatcher) toast(n Notification) {
	now := d.now()

	d.mu.Lock()
	if d.lastText[n.Kind] == n.Text && now.Sub(d.lastAt[n.Kind]) < d.window {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if !d.bucket.tryConsume() {
		return
	}

	d.mu.Lock()
	d.lastText[n.Kind] = n.Text
	d.lastAt[n.Kind] = now
	d.mu.Unlock()

	d.sink.Toast(n)
}

// DisplayName turns a dimension key such as "emotional_stability" into a label.
func DisplayName(dimension string) string {
	s := strings.TrimSpace(strings.ReplaceAll(dimension, "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// enumerate joins items as "a", "a and b" or "a, b and c".
func enumerate(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
