package service

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/examina/examina-backend/internal/config"
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// newTestRedis starts an in-process Redis and returns a client bound to it.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestDefinitionCacheKeepsCorrectOptions(t *testing.T) {
	rdb := newTestRedis(t)
	svc := NewExamService(nil, rdb, zerolog.Nop())
	ctx := context.Background()

	hash := "$2a$04$examgatehash"
	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Trigonometry",
		DurationMinutes: 30,
		PasswordHash:    &hash,
		Questions: []model.Question{
			{ID: uuid.New(), Text: "q1", Options: []string{"A", "B", "C", "D"}, CorrectOption: 2},
			{ID: uuid.New(), Text: "q2", Options: []string{"A", "B", "C", "D"}, CorrectOption: 1},
		},
	}

	if err := svc.warmDefinition(ctx, def); err != nil {
		t.Fatalf("warm definition: %v", err)
	}

	// The hash stays out of the cache slot; the gate re-reads it from
	// PostgreSQL.
	raw, err := rdb.Get(ctx, config.CacheKey.ExamDefinitionKey(def.ID.String())).Result()
	if err != nil {
		t.Fatalf("read cache slot: %v", err)
	}
	if strings.Contains(raw, hash) {
		t.Fatal("password hash leaked into the cached definition")
	}

	// Cache hit; the nil repository proves PostgreSQL is never touched.
	got, err := svc.GetDefinition(ctx, def.ID)
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	for i, q := range got.Questions {
		if want := def.Questions[i].CorrectOption; q.CorrectOption != want {
			t.Fatalf("question %d correct option after cache round trip = %d, want %d", i, q.CorrectOption, want)
		}
	}
}

func TestDefinitionCacheKeepsCorrectOptionsInSections(t *testing.T) {
	rdb := newTestRedis(t)
	svc := NewExamService(nil, rdb, zerolog.Nop())
	ctx := context.Background()

	secID := uuid.New()
	def := &model.ExamDefinition{
		ID:              uuid.New(),
		Title:           "Midterm",
		DurationMinutes: 45,
		Sections: []model.Section{{
			ID:       secID,
			Title:    "Part A",
			OrderNum: 0,
			Questions: []model.Question{
				{ID: uuid.New(), Text: "q1", Options: []string{"A", "B", "C", "D"}, CorrectOption: 3, SectionID: &secID},
				{ID: uuid.New(), Text: "q2", Options: []string{"A", "B", "C", "D"}, CorrectOption: 0, SectionID: &secID},
			},
		}},
	}

	if err := svc.warmDefinition(ctx, def); err != nil {
		t.Fatalf("warm definition: %v", err)
	}
	got, err := svc.GetDefinition(ctx, def.ID)
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	for i, q := range got.Sections[0].Questions {
		if want := def.Sections[0].Questions[i].CorrectOption; q.CorrectOption != want {
			t.Fatalf("section question %d correct option = %d, want %d", i, q.CorrectOption, want)
		}
	}
}
