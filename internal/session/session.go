package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Session errors surfaced to the transport layer.
var (
	ErrWrongPassword = errors.New("wrong exam password")
	ErrInvalidPhase  = errors.New("operation not allowed in current session phase")
	ErrInvalidOption = errors.New("option index out of range")
)

const tickInterval = time.Second

// Deps are the injected collaborators of an ExamSession. The session never
// reaches for ambient state: the exam definition, clock, tick scheduler,
// submit operation and marker store all arrive here.
type Deps struct {
	Clock     Clock
	Scheduler Scheduler
	Submit    SubmitFunc
	Markers   MarkerStore
	Log       zerolog.Logger
}

// ExamSession orchestrates one student's timed attempt at one exam: the
// phase machine, timing, answers, navigation, integrity handling and the
// exactly-once submission.
//
// All methods are safe for concurrent use; the tick goroutine, HTTP
// handlers and the WebSocket pusher interleave on the internal mutex.
type ExamSession struct {
	mu sync.Mutex

	def       *model.ExamDefinition
	studentID int

	phase  model.SessionPhase
	keeper *TimeKeeper
	ledger *AnswerLedger
	cursor *NavigationCursor
	guard  *IntegrityGuard
	coord  *SubmissionCoordinator

	sched    Scheduler
	stopTick func()
	log      zerolog.Logger

	// expireRouted latches the timeout trigger: once time-up has been routed
	// into a submission it never fires again, even if that submission failed
	// and the student re-entered Running. Retrying is a human decision.
	expireRouted bool

	// pendingReason is the reason the open submit-confirmation flow will
	// submit with (manual, or reload when recovery opened it).
	pendingReason model.SubmitReason
	reloadNotice  bool

	lastResult  *model.SubmitResult
	lastFailure string
}

// New builds a session for the given exam definition and student. The
// session starts in NOT_STARTED; call Begin to enter the phase machine.
func New(def *model.ExamDefinition, studentID int, deps Deps) (*ExamSession, error) {
	cursor, err := NewNavigationCursor(def)
	if err != nil {
		return nil, fmt.Errorf("normalize exam: %w", err)
	}

	questions := cursor.Questions()
	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	sched := deps.Scheduler
	if sched == nil {
		sched = TickerScheduler{}
	}

	return &ExamSession{
		def:           def,
		studentID:     studentID,
		phase:         model.PhaseNotStarted,
		keeper:        NewTimeKeeper(clock),
		ledger:        NewAnswerLedger(ids),
		cursor:        cursor,
		guard:         NewIntegrityGuard(clock, deps.Markers, def.ID),
		coord:         NewSubmissionCoordinator(deps.Submit),
		sched:         sched,
		pendingReason: model.ReasonManual,
		log: deps.Log.With().
			Str("component", "exam_session").
			Str("exam_id", def.ID.String()).
			Int("student_id", studentID).
			Logger(),
	}, nil
}

// Begin enters the phase machine: password-gated exams wait in
// AWAITING_PASSWORD, everything else starts the clock immediately.
func (s *ExamSession) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseNotStarted {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}

	if s.def.RequiresPassword() {
		s.phase = model.PhaseAwaitingPassword
		return nil
	}
	s.start()
	return nil
}

// SubmitPassword validates the exam password. A wrong candidate keeps the
// session in AWAITING_PASSWORD with no attempt counting or lockout.
func (s *ExamSession) SubmitPassword(candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseAwaitingPassword {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	if bcrypt.CompareHashAndPassword([]byte(*s.def.PasswordHash), []byte(candidate)) != nil {
		return ErrWrongPassword
	}

	s.start()
	if s.reloadNotice {
		// Recovery was detected before the gate; open the confirm flow now.
		s.phase = model.PhaseAwaitingConfirm
		s.pendingReason = model.ReasonReload
	}
	return nil
}

// start transitions to RUNNING and arms the 1-second tick. Caller holds mu.
func (s *ExamSession) start() {
	s.keeper.Start(s.def.DurationMinutes * 60)
	s.phase = model.PhaseRunning
	s.stopTick = s.sched.Schedule(tickInterval, s.tick)
	s.log.Info().Int("limit_seconds", s.def.DurationMinutes*60).Msg("Exam started")
}

// tick recomputes remaining time and routes the timeout trigger. It runs
// while the attempt is live, including during breaks (break does not pause
// the clock) and while a submit confirmation is open.
func (s *ExamSession) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
	default:
		return
	}

	if s.keeper.Tick() > 0 || s.expireRouted {
		return
	}
	s.expireRouted = true
	s.log.Warn().Msg("Time limit reached, forcing submission")
	if _, err := s.submitLocked(context.Background(), model.ReasonTimeUp); err != nil && !errors.Is(err, ErrAlreadySubmitted) {
		s.log.Error().Err(err).Msg("Timeout submission failed")
	}
}

// CheckReload consumes a reload marker left by a previous unload of this
// exam. A matching marker opens the submit-confirmation flow exactly once;
// a marker for another exam is cleared without acting on it.
func (s *ExamSession) CheckReload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched, err := s.guard.OnReloadDetected(ctx)
	if err != nil {
		return false, fmt.Errorf("check reload marker: %w", err)
	}
	if !matched {
		return false, nil
	}

	s.reloadNotice = true
	if s.phase == model.PhaseRunning || s.phase == model.PhaseOnBreak {
		s.flushDwellLocked()
		s.phase = model.PhaseAwaitingConfirm
		s.pendingReason = model.ReasonReload
	}
	return true, nil
}

// SelectAnswer records an option choice for a question. Selecting always
// re-derives the status to ANSWERED, which drops any review mark.
func (s *ExamSession) SelectAnswer(questionID uuid.UUID, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	if optionIndex < 0 || optionIndex >= model.OptionCount {
		return ErrInvalidOption
	}
	return s.ledger.SetAnswer(questionID, optionIndex)
}

// ToggleMark flips a question's marked-for-review state.
func (s *ExamSession) ToggleMark(questionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	return s.ledger.ToggleMark(questionID)
}

// GoNext advances to the next question, flushing dwell time first.
func (s *ExamSession) GoNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.flushDwellLocked()
	s.cursor.Next()
	return nil
}

// GoPrev moves to the previous question, flushing dwell time first.
func (s *ExamSession) GoPrev() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.flushDwellLocked()
	s.cursor.Prev()
	return nil
}

// JumpTo moves directly to (sectionIndex, questionIndex).
func (s *ExamSession) JumpTo(sectionIndex, questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.flushDwellLocked()
	return s.cursor.JumpTo(sectionIndex, questionIndex)
}

// TakeBreak pauses question display. The exam clock keeps counting; break
// time keeps accruing to the question that was active when the break began.
func (s *ExamSession) TakeBreak() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.flushDwellLocked()
	s.phase = model.PhaseOnBreak
	return nil
}

// ResumeFromBreak returns to RUNNING.
func (s *ExamSession) ResumeFromBreak() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseOnBreak {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.phase = model.PhaseRunning
	return nil
}

// RequestManualSubmit opens the submit-confirmation flow.
func (s *ExamSession) RequestManualSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseRunning {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.flushDwellLocked()
	s.phase = model.PhaseAwaitingConfirm
	s.pendingReason = model.ReasonManual
	return nil
}

// ConfirmManualSubmit submits with the reason that opened the confirmation
// flow (manual, or reload when recovery opened it).
func (s *ExamSession) ConfirmManualSubmit(ctx context.Context) (*model.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseAwaitingConfirm {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	return s.submitLocked(ctx, s.pendingReason)
}

// CancelManualSubmit closes the confirmation flow and stays in RUNNING.
func (s *ExamSession) CancelManualSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseAwaitingConfirm {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.phase = model.PhaseRunning
	s.pendingReason = model.ReasonManual
	return nil
}

// ReportBackNavigation handles a browser history back/forward signal and
// returns the guard's decision. Terminal phases allow the navigation.
func (s *ExamSession) ReportBackNavigation() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
		return s.guard.OnBackNavigationAttempt()
	default:
		return DecisionAllow
	}
}

// ConfirmAbandonment is the confirm edge of the back-navigation dialog:
// submit irreversibly with reason browser_navigation.
func (s *ExamSession) ConfirmAbandonment(ctx context.Context) (*model.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
		return s.submitLocked(ctx, model.ReasonBrowserNavigation)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
}

// ReportUnload persists the reload marker before an unload proceeds. The
// write is synchronous; it is the only durable trace the next load has.
func (s *ExamSession) ReportUnload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
		return s.guard.OnUnloadAttempt(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
}

// AcknowledgeFailure re-enters RUNNING after a failed submission so the
// student can retry. Submission is never retried automatically.
func (s *ExamSession) AcknowledgeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseFailed {
		return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}
	s.phase = model.PhaseRunning
	s.lastFailure = ""
	return nil
}

// submitLocked implements the exactly-once submission path. Caller holds mu;
// the lock is dropped around the external call so snapshots and the state
// pusher keep flowing while the submission is in flight. The SUBMITTING
// phase, set before the lock is released, gates every mutating entry point.
func (s *ExamSession) submitLocked(ctx context.Context, reason model.SubmitReason) (*model.SubmitResult, error) {
	if s.coord.Attempted() {
		return nil, ErrAlreadySubmitted
	}

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
	}

	s.flushDwellLocked()
	questions := s.cursor.Questions()

	payload := &model.SubmitPayload{
		ExamID:           s.def.ID,
		StudentID:        s.studentID,
		Answers:          s.ledger.Answers(),
		QuestionStatuses: s.ledger.Statuses(),
		Score:            s.ledger.Score(questions),
		TotalQuestions:   len(questions),
		TimeSpentSeconds: s.keeper.TotalElapsedSeconds(),
		Reason:           reason,
		IsSubmitted:      true,
	}

	s.phase = model.PhaseSubmitting

	s.mu.Unlock()
	result, err := s.coord.Submit(ctx, payload)
	s.mu.Lock()

	if err != nil {
		s.phase = model.PhaseFailed
		s.lastFailure = err.Error()
		s.log.Error().Err(err).Str("reason", string(reason)).Msg("Submission failed")
		return nil, err
	}

	s.phase = model.PhaseSubmitted
	s.lastResult = result
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
	s.log.Info().
		Str("reason", string(reason)).
		Int("score", payload.Score).
		Str("submission_id", result.SubmissionID.String()).
		Msg("Exam submitted")
	return result, nil
}

// flushDwellLocked moves elapsed dwell into the active question's entry.
func (s *ExamSession) flushDwellLocked() {
	if !s.keeper.Started() {
		return
	}
	s.ledger.AddTimeSpent(s.cursor.CurrentQuestion().ID, s.keeper.FlushDwell())
}

// RestoreAnswers rehydrates the ledger from a mirrored state, used when a
// session is rebuilt after a reload.
func (s *ExamSession) RestoreAnswers(answers map[uuid.UUID]int, statuses map[uuid.UUID]model.QuestionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Restore(answers, statuses)
}

// Close stops the tick goroutine. Safe to call multiple times.
func (s *ExamSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

// Phase returns the current session phase.
func (s *ExamSession) Phase() model.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// ExamID returns the exam this session runs.
func (s *ExamSession) ExamID() uuid.UUID { return s.def.ID }

// StudentID returns the owning student.
func (s *ExamSession) StudentID() int { return s.studentID }
