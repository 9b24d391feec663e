package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrExamNotAvailable = errors.New("exam is not available")
)

// ExamService serves exam definitions with a Redis fast lane: published
// definitions are cached as JSON so session starts do not hit PostgreSQL.
type ExamService struct {
	examRepo *repository.ExamRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(examRepo *repository.ExamRepository, rdb *redis.Client, log zerolog.Logger) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		rdb:      rdb,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// GetDefinition returns the full exam definition, cache-aside. On a cache
// miss the definition is loaded from PostgreSQL and written back so the
// next request is fast.
func (s *ExamService) GetDefinition(ctx context.Context, examID uuid.UUID) (*model.ExamDefinition, error) {
	key := config.CacheKey.ExamDefinitionKey(examID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		def, decodeErr := decodeDefinition([]byte(raw))
		if decodeErr == nil {
			return def, nil
		}
		// Corrupt cache entry: fall through to the DB and rewrite it.
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt cached definition, reloading")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get definition: %w", err)
	}

	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	def, err := s.examRepo.GetDefinition(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}

	// Self-heal the cache so the next session start is fast.
	if err := s.warmDefinition(ctx, def); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Definition cache write failed")
	}

	return def, nil
}

// PrewarmAllCaches loads every published exam definition into Redis.
// Called before accepting traffic to avoid lazy-load races under a
// thundering herd at exam start time.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	warmed := 0
	for _, exam := range exams {
		def, err := s.examRepo.GetDefinition(ctx, exam.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Skipping prewarm")
			continue
		}
		if err := s.warmDefinition(ctx, def); err != nil {
			s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Prewarm write failed")
			continue
		}
		warmed++
	}

	s.log.Info().Int("count", warmed).Msg("Exam definition caches prewarmed")
	return nil
}

// warmDefinition serializes a definition into its cache slot. The cached
// JSON excludes the password hash (it is json:"-" on the model); the hash
// is re-read from PostgreSQL when the gate is checked.
func (s *ExamService) warmDefinition(ctx context.Context, def *model.ExamDefinition) error {
	raw, err := encodeDefinition(def)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}
	key := config.CacheKey.ExamDefinitionKey(def.ID.String())
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("cache definition: %w", err)
	}
	return nil
}

// cachedDefinition is the server-internal cache payload. The question
// model hides correct options from its JSON shape because that shape is
// what snapshots hand to clients; the cache never leaves the server, so
// it carries the options in a sidecar map and rehydrates them on read.
type cachedDefinition struct {
	Definition     *model.ExamDefinition `json:"definition"`
	CorrectOptions map[uuid.UUID]int     `json:"correct_options"`
}

func encodeDefinition(def *model.ExamDefinition) ([]byte, error) {
	correct := make(map[uuid.UUID]int)
	eachQuestion(def, func(q *model.Question) {
		correct[q.ID] = q.CorrectOption
	})
	return json.Marshal(cachedDefinition{Definition: def, CorrectOptions: correct})
}

func decodeDefinition(raw []byte) (*model.ExamDefinition, error) {
	var cached cachedDefinition
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}
	if cached.Definition == nil {
		return nil, errors.New("cached definition payload is empty")
	}
	eachQuestion(cached.Definition, func(q *model.Question) {
		if opt, ok := cached.CorrectOptions[q.ID]; ok {
			q.CorrectOption = opt
		}
	})
	return cached.Definition, nil
}

// eachQuestion visits every question in place, flat or sectioned.
func eachQuestion(def *model.ExamDefinition, fn func(*model.Question)) {
	for i := range def.Questions {
		fn(&def.Questions[i])
	}
	for si := range def.Sections {
		questions := def.Sections[si].Questions
		for i := range questions {
			fn(&questions[i])
		}
	}
}

// GetPasswordHash loads the exam's password hash directly from PostgreSQL.
// Hashes never travel through the definition cache.
func (s *ExamService) GetPasswordHash(ctx context.Context, examID uuid.UUID) (*string, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam.PasswordHash, nil
}
