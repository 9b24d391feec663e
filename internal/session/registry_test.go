package session

import (
	"errors"
	"testing"
)

func TestRegistryOneSessionPerPair(t *testing.T) {
	r := NewRegistry()
	h := newHarness(t, flatExam(30, 0))

	if err := r.Put(h.sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := r.Get(h.sess.StudentID(), h.sess.ExamID())
	if !ok || got != h.sess {
		t.Fatal("get did not return the registered session")
	}

	dup := newHarness(t, flatExam(30, 0))
	dupSess, err := New(h.sess.def, h.sess.StudentID(), Deps{
		Clock:     dup.clock,
		Scheduler: dup.sched,
		Submit:    dup.rec.fn,
		Markers:   dup.markers,
	})
	if err != nil {
		t.Fatalf("new duplicate: %v", err)
	}
	if err := r.Put(dupSess); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("duplicate put err = %v, want ErrSessionActive", err)
	}
}

func TestRegistryRemoveStopsTicker(t *testing.T) {
	r := NewRegistry()
	h := newHarness(t, flatExam(30, 0))
	h.begin(t)

	if err := r.Put(h.sess); err != nil {
		t.Fatalf("put: %v", err)
	}
	r.Remove(h.sess.StudentID(), h.sess.ExamID())

	if _, ok := r.Get(h.sess.StudentID(), h.sess.ExamID()); ok {
		t.Fatal("session still registered after remove")
	}
	if !h.sched.stopped {
		t.Fatal("ticker not stopped on remove")
	}

	// Removing an absent session is a no-op.
	r.Remove(h.sess.StudentID(), h.sess.ExamID())
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	h1 := newHarness(t, flatExam(30, 0))
	h2 := newHarness(t, flatExam(30, 0))
	h1.begin(t)
	h2.begin(t)

	r.Put(h1.sess)
	r.Put(h2.sess)
	r.CloseAll()

	if !h1.sched.stopped || !h2.sched.stopped {
		t.Fatal("tickers not stopped on CloseAll")
	}
	if _, ok := r.Get(h1.sess.StudentID(), h1.sess.ExamID()); ok {
		t.Fatal("sessions still registered after CloseAll")
	}
}
