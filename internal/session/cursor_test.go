package session

import (
	"testing"
)

func TestCursorFlatNavigation(t *testing.T) {
	def := flatExam(30, 0, 0, 0)
	c, err := NewNavigationCursor(def)
	if err != nil {
		t.Fatalf("new cursor: %v", err)
	}

	if !c.IsFirst() || c.IsLast() {
		t.Fatal("fresh cursor should be at the first question")
	}
	if c.TotalQuestions() != 3 || c.SectionCount() != 1 {
		t.Fatalf("total = %d sections = %d, want 3 and 1", c.TotalQuestions(), c.SectionCount())
	}

	// Prev at the first question is a no-op.
	c.Prev()
	if s, q := c.Current(); s != 0 || q != 0 {
		t.Fatalf("after prev at start: (%d,%d), want (0,0)", s, q)
	}

	c.Next()
	c.Next()
	if !c.IsLast() {
		t.Fatal("cursor should be at the last question")
	}

	// Next at the last question is a no-op.
	c.Next()
	if s, q := c.Current(); s != 0 || q != 2 {
		t.Fatalf("after next at end: (%d,%d), want (0,2)", s, q)
	}
}

func TestCursorCrossesSections(t *testing.T) {
	def := sectionedExam(30, 2, 3)
	c, err := NewNavigationCursor(def)
	if err != nil {
		t.Fatalf("new cursor: %v", err)
	}

	c.Next()
	c.Next() // crosses into section 1
	if s, q := c.Current(); s != 1 || q != 0 {
		t.Fatalf("after crossing forward: (%d,%d), want (1,0)", s, q)
	}

	c.Prev() // back into section 0's last question
	if s, q := c.Current(); s != 0 || q != 1 {
		t.Fatalf("after crossing back: (%d,%d), want (0,1)", s, q)
	}

	if c.TotalQuestions() != 5 {
		t.Fatalf("total = %d, want 5", c.TotalQuestions())
	}
}

func TestCursorJumpTo(t *testing.T) {
	def := sectionedExam(30, 2, 3)
	c, _ := NewNavigationCursor(def)

	tests := []struct {
		name    string
		section int
		pos     int
		wantErr bool
	}{
		{name: "valid", section: 1, pos: 2, wantErr: false},
		{name: "section too high", section: 2, pos: 0, wantErr: true},
		{name: "question too high", section: 0, pos: 2, wantErr: true},
		{name: "negative section", section: -1, pos: 0, wantErr: true},
		{name: "negative question", section: 0, pos: -1, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := c.JumpTo(tc.section, tc.pos)
			if tc.wantErr {
				if err != ErrOutOfBounds {
					t.Fatalf("err = %v, want ErrOutOfBounds", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("jump: %v", err)
			}
			if s, q := c.Current(); s != tc.section || q != tc.pos {
				t.Fatalf("position = (%d,%d), want (%d,%d)", s, q, tc.section, tc.pos)
			}
		})
	}
}

func TestCursorJumpDoesNotMoveOnError(t *testing.T) {
	def := flatExam(30, 0, 0)
	c, _ := NewNavigationCursor(def)
	c.Next()

	if err := c.JumpTo(0, 9); err != ErrOutOfBounds {
		t.Fatalf("err = %v, want ErrOutOfBounds", err)
	}
	if s, q := c.Current(); s != 0 || q != 1 {
		t.Fatalf("position moved to (%d,%d) on failed jump", s, q)
	}
}

func TestCursorRejectsEmptyExams(t *testing.T) {
	if _, err := NewNavigationCursor(flatExam(30)); err == nil {
		t.Fatal("expected error for exam with no questions")
	}

	def := sectionedExam(30, 2)
	def.Sections[0].Questions = nil
	if _, err := NewNavigationCursor(def); err == nil {
		t.Fatal("expected error for section with no questions")
	}
}

func TestCursorQuestionsFlattened(t *testing.T) {
	def := sectionedExam(30, 2, 1)
	c, _ := NewNavigationCursor(def)

	qs := c.Questions()
	if len(qs) != 3 {
		t.Fatalf("flattened count = %d, want 3", len(qs))
	}
	if qs[0].ID != def.Sections[0].Questions[0].ID || qs[2].ID != def.Sections[1].Questions[0].ID {
		t.Fatal("flattened order does not follow section order")
	}
}
