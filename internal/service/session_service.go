package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/examina/examina-backend/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrSessionCompleted = errors.New("exam already completed by this student")
	ErrNoLiveSession    = errors.New("no live session for this exam")
)

// SessionService owns the live exam sessions of this process. It builds
// sessions from cached definitions, re-attaches clients after reloads,
// mirrors answers to Redis so a rebuilt session can restore them, and
// feeds the persistence queues the background workers drain.
type SessionService struct {
	registry    *session.Registry
	exams       *ExamService
	sessions    *repository.SessionRepository
	submissions *repository.SubmissionRepository
	rdb         *redis.Client
	log         zerolog.Logger

	// clock and sched are overridable for tests; nil means real time.
	clock session.Clock
	sched session.Scheduler
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	registry *session.Registry,
	exams *ExamService,
	sessions *repository.SessionRepository,
	submissions *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		registry:    registry,
		exams:       exams,
		sessions:    sessions,
		submissions: submissions,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Begin starts or re-attaches a student's session for an exam.
//
// A live in-process session means the client reconnected (or reloaded
// while the server kept running): the caller gets the current state back,
// with the reload marker consumed if one was left. Otherwise a session is
// built from the cached definition, its answers restored from the Redis
// mirror, and an attempt row ensured in PostgreSQL.
func (s *SessionService) Begin(ctx context.Context, studentID int, examID uuid.UUID) (session.Snapshot, error) {
	if sess, ok := s.registry.Get(studentID, examID); ok {
		// A consumed marker leaves the same audit trail here as on a rebuild.
		if matched, err := sess.CheckReload(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Reload marker check failed on re-attach")
		} else if matched {
			s.enqueueIntegrity(ctx, examID, studentID, model.IntegrityReload, "")
		}
		return sess.Snapshot(), nil
	}

	record, err := s.sessions.GetByExamAndStudent(ctx, examID, studentID)
	switch {
	case err == nil:
		if record.Status == model.SessionStatusCompleted {
			return session.Snapshot{}, ErrSessionCompleted
		}
	case errors.Is(err, pgx.ErrNoRows):
		record = nil
	default:
		return session.Snapshot{}, fmt.Errorf("load attempt: %w", err)
	}

	// The attempt row lags the submission by one worker cycle. A submission
	// row is written synchronously at submit time, so its presence settles
	// the question even while the row still says IN_PROGRESS.
	if _, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID); err == nil {
		return session.Snapshot{}, ErrSessionCompleted
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return session.Snapshot{}, fmt.Errorf("check submission: %w", err)
	}

	def, err := s.exams.GetDefinition(ctx, examID)
	if err != nil {
		return session.Snapshot{}, err
	}
	// The cached definition never carries the password hash; fetch it from
	// the source of truth when the exam is gated.
	hash, err := s.exams.GetPasswordHash(ctx, examID)
	if err != nil {
		return session.Snapshot{}, err
	}
	def.PasswordHash = hash

	sess, err := session.New(def, studentID, session.Deps{
		Clock:     s.clock,
		Scheduler: s.sched,
		Submit:    s.submitFunc(examID, studentID),
		Markers:   newReloadMarkerStore(s.rdb, studentID),
		Log:       s.log,
	})
	if err != nil {
		return session.Snapshot{}, err
	}

	if err := s.registry.Put(sess); err != nil {
		// Lost a begin race; the winner's session is the live one.
		sess.Close()
		if winner, ok := s.registry.Get(studentID, examID); ok {
			return winner.Snapshot(), nil
		}
		return session.Snapshot{}, err
	}

	if record == nil {
		if err := s.ensureAttemptRow(ctx, examID, studentID); err != nil {
			s.registry.Remove(studentID, examID)
			return session.Snapshot{}, err
		}
	}

	s.restoreMirror(ctx, sess, examID, studentID)

	if err := sess.Begin(); err != nil {
		s.registry.Remove(studentID, examID)
		return session.Snapshot{}, err
	}

	if matched, err := sess.CheckReload(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Reload marker check failed")
	} else if matched {
		s.enqueueIntegrity(ctx, examID, studentID, model.IntegrityReload, "")
	}

	return sess.Snapshot(), nil
}

// State returns the current snapshot of a live session. A session that
// reached SUBMITTED is cleaned up after its final snapshot is taken.
func (s *SessionService) State(ctx context.Context, studentID int, examID uuid.UUID) (session.Snapshot, error) {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return session.Snapshot{}, err
	}
	snap := sess.Snapshot()
	if snap.Phase == model.PhaseSubmitted {
		s.finish(ctx, studentID, examID)
	}
	return snap, nil
}

// SubmitPassword checks the exam password against its gate.
func (s *SessionService) SubmitPassword(ctx context.Context, studentID int, examID uuid.UUID, password string) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.SubmitPassword(password)
}

// SelectAnswer records an answer and mirrors it to Redis so a session
// rebuilt after a reload does not lose it.
func (s *SessionService) SelectAnswer(ctx context.Context, studentID int, examID uuid.UUID, questionID uuid.UUID, option int) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	if err := sess.SelectAnswer(questionID, option); err != nil {
		return err
	}
	s.mirrorEntry(ctx, sess, examID, studentID, questionID)
	return nil
}

// ToggleMark flips the review mark on a question and mirrors the change.
func (s *SessionService) ToggleMark(ctx context.Context, studentID int, examID uuid.UUID, questionID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	if err := sess.ToggleMark(questionID); err != nil {
		return err
	}
	s.mirrorEntry(ctx, sess, examID, studentID, questionID)
	return nil
}

// GoNext advances the navigation cursor.
func (s *SessionService) GoNext(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.GoNext()
}

// GoPrev moves the cursor back.
func (s *SessionService) GoPrev(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.GoPrev()
}

// JumpTo moves the cursor to an arbitrary question.
func (s *SessionService) JumpTo(studentID int, examID uuid.UUID, sectionIndex, questionIndex int) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.JumpTo(sectionIndex, questionIndex)
}

// TakeBreak enters the break screen.
func (s *SessionService) TakeBreak(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.TakeBreak()
}

// ResumeFromBreak returns to the questions.
func (s *SessionService) ResumeFromBreak(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.ResumeFromBreak()
}

// RequestSubmit opens the submit-confirmation flow.
func (s *SessionService) RequestSubmit(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.RequestManualSubmit()
}

// ConfirmSubmit finalizes the open confirmation flow.
func (s *SessionService) ConfirmSubmit(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmitResult, error) {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return nil, err
	}
	result, err := sess.ConfirmManualSubmit(ctx)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, studentID, examID)
	return result, nil
}

// CancelSubmit closes the confirmation flow and resumes the exam.
func (s *SessionService) CancelSubmit(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.CancelManualSubmit()
}

// AcknowledgeFailure lets the student retry after a failed submission.
func (s *SessionService) AcknowledgeFailure(studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	return sess.AcknowledgeFailure()
}

// ReportBackNavigation routes a browser back/forward signal through the
// session's guard. Coalesced repeats do not generate audit events.
func (s *SessionService) ReportBackNavigation(ctx context.Context, studentID int, examID uuid.UUID) (session.Decision, error) {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return session.DecisionAllow, err
	}
	decision := sess.ReportBackNavigation()
	if decision == session.DecisionConfirm {
		s.enqueueIntegrity(ctx, examID, studentID, model.IntegrityBackNavigation, "")
	}
	return decision, nil
}

// ConfirmAbandonment is the student confirming they want to leave: the
// attempt is submitted irreversibly.
func (s *SessionService) ConfirmAbandonment(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmitResult, error) {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return nil, err
	}
	result, err := sess.ConfirmAbandonment(ctx)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, studentID, examID)
	return result, nil
}

// ReportUnload persists the reload marker before the page goes away.
func (s *SessionService) ReportUnload(ctx context.Context, studentID int, examID uuid.UUID) error {
	sess, err := s.live(studentID, examID)
	if err != nil {
		return err
	}
	if err := sess.ReportUnload(ctx); err != nil {
		return err
	}
	s.enqueueIntegrity(ctx, examID, studentID, model.IntegrityUnload, "")
	return nil
}

// Result fetches the persisted submission for a finished attempt.
func (s *SessionService) Result(ctx context.Context, studentID int, examID uuid.UUID) (*model.Submission, error) {
	sub, err := s.submissions.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoLiveSession
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return sub, nil
}

// Shutdown closes every live session. Ticks stop; nothing is submitted
// on the students' behalf.
func (s *SessionService) Shutdown() {
	s.registry.CloseAll()
}

// ────────────────────────────────────────────────────────────
// internals
// ────────────────────────────────────────────────────────────

func (s *SessionService) live(studentID int, examID uuid.UUID) (*session.ExamSession, error) {
	sess, ok := s.registry.Get(studentID, examID)
	if !ok {
		return nil, ErrNoLiveSession
	}
	return sess, nil
}

// submitFunc builds the session's submit operation: insert the submission
// row synchronously, then hand the attempt-row finalization to the result
// worker via the persistence queue.
func (s *SessionService) submitFunc(examID uuid.UUID, studentID int) session.SubmitFunc {
	return func(ctx context.Context, p *model.SubmitPayload) (*model.SubmitResult, error) {
		id, err := s.submissions.Insert(ctx, p)
		if err != nil {
			return nil, err
		}

		raw, _ := json.Marshal(map[string]interface{}{
			"exam_id":         examID.String(),
			"student_id":      studentID,
			"score":           p.Score,
			"total_questions": p.TotalQuestions,
			"finished_at":     time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
			// The submission row exists; the attempt row catches up when the
			// queue recovers or via reconciliation. Do not fail the submit.
			s.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Result enqueue failed")
		}

		if p.Reason != model.ReasonManual {
			s.enqueueIntegrity(ctx, examID, studentID, integrityKindFor(p.Reason), string(p.Reason))
		}

		return &model.SubmitResult{
			SubmissionID: id,
			Score:        p.Score,
			Message:      "submission recorded",
		}, nil
	}
}

func integrityKindFor(reason model.SubmitReason) model.IntegrityEventKind {
	switch reason {
	case model.ReasonTimeUp:
		return model.IntegrityTimeUp
	case model.ReasonBrowserNavigation:
		return model.IntegrityBackNavigation
	default:
		return model.IntegrityReload
	}
}

// ensureAttemptRow inserts the IN_PROGRESS row, tolerating a concurrent
// insert from another node: on conflict the existing row wins.
func (s *SessionService) ensureAttemptRow(ctx context.Context, examID uuid.UUID, studentID int) error {
	record := &model.SessionRecord{ExamID: examID, StudentID: studentID}
	if err := s.sessions.Create(ctx, record); err != nil {
		if _, getErr := s.sessions.GetByExamAndStudent(ctx, examID, studentID); getErr == nil {
			return nil
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// mirrorEntry writes one ledger entry into the Redis answer mirror.
// Best effort: a failed mirror write never fails the student's action.
func (s *SessionService) mirrorEntry(ctx context.Context, sess *session.ExamSession, examID uuid.UUID, studentID int, questionID uuid.UUID) {
	snap := sess.Snapshot()
	entry, ok := snap.Entries[questionID]
	if !ok {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	key := config.CacheKey.StudentAnswerMirrorKey(examID.String(), studentID)
	if err := s.rdb.HSet(ctx, key, questionID.String(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Answer mirror write failed")
	}
}

// restoreMirror rehydrates a fresh session's ledger from the Redis mirror.
func (s *SessionService) restoreMirror(ctx context.Context, sess *session.ExamSession, examID uuid.UUID, studentID int) {
	key := config.CacheKey.StudentAnswerMirrorKey(examID.String(), studentID)
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Answer mirror read failed")
		return
	}
	if len(fields) == 0 {
		return
	}

	answers := make(map[uuid.UUID]int)
	statuses := make(map[uuid.UUID]model.QuestionStatus)
	for field, raw := range fields {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		var entry model.AnswerEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if entry.SelectedOption != nil {
			answers[qid] = *entry.SelectedOption
		}
		statuses[qid] = model.QuestionStatus{Status: entry.Status, TimeSpent: entry.TimeSpentSeconds}
	}

	sess.RestoreAnswers(answers, statuses)
	s.log.Info().
		Int("count", len(fields)).
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Msg("Answers restored from mirror")
}

// enqueueIntegrity records an abandonment signal for the audit trail.
func (s *SessionService) enqueueIntegrity(ctx context.Context, examID uuid.UUID, studentID int, kind model.IntegrityEventKind, detail string) {
	raw, _ := json.Marshal(map[string]interface{}{
		"exam_id":     examID.String(),
		"student_id":  studentID,
		"kind":        string(kind),
		"detail":      detail,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("Integrity event enqueue failed")
	}
}

// finish removes a finished session and clears its answer mirror.
func (s *SessionService) finish(ctx context.Context, studentID int, examID uuid.UUID) {
	s.registry.Remove(studentID, examID)
	key := config.CacheKey.StudentAnswerMirrorKey(examID.String(), studentID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Answer mirror cleanup failed")
	}
}
