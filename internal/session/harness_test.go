package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// manualScheduler exposes the tick for tests to fire deliberately.
type manualScheduler struct {
	fn      func()
	stopped bool
}

func (s *manualScheduler) Schedule(_ time.Duration, fn func()) func() {
	s.fn = fn
	return func() { s.stopped = true }
}

func (s *manualScheduler) Fire() {
	if s.fn != nil && !s.stopped {
		s.fn()
	}
}

// memMarkerStore is an in-memory MarkerStore shared across rebuilt
// sessions in a test, standing in for the durable store.
type memMarkerStore struct {
	mu     sync.Mutex
	marker *model.ReloadMarker
}

func (m *memMarkerStore) Put(_ context.Context, marker model.ReloadMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := marker
	m.marker = &cp
	return nil
}

func (m *memMarkerStore) Get(_ context.Context) (*model.ReloadMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marker == nil {
		return nil, nil
	}
	cp := *m.marker
	return &cp, nil
}

func (m *memMarkerStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = nil
	return nil
}

// submitRecorder captures submit calls and simulates provider outcomes.
type submitRecorder struct {
	mu     sync.Mutex
	calls  int
	last   *model.SubmitPayload
	err    error
	reject bool
}

func (r *submitRecorder) fn(_ context.Context, p *model.SubmitPayload) (*model.SubmitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = p
	if r.err != nil {
		return nil, r.err
	}
	if r.reject {
		return &model.SubmitResult{Message: "rejected upstream"}, nil
	}
	return &model.SubmitResult{SubmissionID: uuid.New(), Score: p.Score}, nil
}

func (r *submitRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *submitRecorder) lastPayload() *model.SubmitPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// ─── fixtures ────────────────────────────────────────────────

func testQuestion(text string, correct int) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Text:          text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectOption: correct,
	}
}

// flatExam builds an exam with no sections; correct[i] is the correct
// option of question i.
func flatExam(durationMinutes int, correct ...int) *model.ExamDefinition {
	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Algebra Basics",
		DurationMinutes: durationMinutes,
	}
	for _, c := range correct {
		def.Questions = append(def.Questions, testQuestion("q", c))
	}
	return def
}

// sectionedExam builds an exam with one section per size entry; every
// question's correct option is 0.
func sectionedExam(durationMinutes int, sizes ...int) *model.ExamDefinition {
	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Midterm",
		DurationMinutes: durationMinutes,
	}
	for s, n := range sizes {
		sec := model.Section{ID: uuid.New(), Title: "Section", OrderNum: s}
		for i := 0; i < n; i++ {
			q := testQuestion("q", 0)
			q.SectionID = &sec.ID
			sec.Questions = append(sec.Questions, q)
		}
		def.Sections = append(def.Sections, sec)
	}
	return def
}

func hashPassword(t *testing.T, pw string) *string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	s := string(h)
	return &s
}

// harness bundles a session with its controllable collaborators.
type harness struct {
	sess    *ExamSession
	clock   *fakeClock
	sched   *manualScheduler
	markers *memMarkerStore
	rec     *submitRecorder
}

func newHarness(t *testing.T, def *model.ExamDefinition) *harness {
	t.Helper()
	h := &harness{
		clock:   newFakeClock(),
		sched:   &manualScheduler{},
		markers: &memMarkerStore{},
		rec:     &submitRecorder{},
	}
	sess, err := New(def, 7, Deps{
		Clock:     h.clock,
		Scheduler: h.sched,
		Submit:    h.rec.fn,
		Markers:   h.markers,
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.sess = sess
	return h
}

// rebuild simulates a fresh page load: a new session over the same exam
// and the same durable marker store.
func (h *harness) rebuild(t *testing.T, def *model.ExamDefinition) *harness {
	t.Helper()
	next := &harness{
		clock:   h.clock,
		sched:   &manualScheduler{},
		markers: h.markers,
		rec:     &submitRecorder{},
	}
	sess, err := New(def, 7, Deps{
		Clock:     next.clock,
		Scheduler: next.sched,
		Submit:    next.rec.fn,
		Markers:   next.markers,
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("rebuild session: %v", err)
	}
	next.sess = sess
	return next
}

func (h *harness) begin(t *testing.T) {
	t.Helper()
	if err := h.sess.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
}

func assertPhase(t *testing.T, sess *ExamSession, want model.SessionPhase) {
	t.Helper()
	if got := sess.Phase(); got != want {
		t.Fatalf("phase = %s, want %s", got, want)
	}
}
