package lesson

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pavelanni/tutor/internal/model"
)

// curriculum builds lesson plans with the given activity counts.
func curriculum(counts ...int) []model.LessonPlan {
	plans := make([]model.LessonPlan, 0, len(counts))
	for li, n := range counts {
		var acts []model.Activity
		for ai := 0; ai < n; ai++ {
			acts = append(acts, model.Activity{
				Order: ai + 1,
				Name:  fmt.Sprintf("L%d-A%d", li, ai),
				Text:  "do the thing",
				Theme: "clarity",
			})
		}
		plans = append(plans, model.LessonPlan{
			Pedagogy: model.PedagogySAFE,
			LessonPlan: model.LessonBody{
				Objective:  fmt.Sprintf("objective %d", li),
				Activities: acts,
			},
		})
	}
	return plans
}

func TestAdvanceReachesFinalActivity(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
	}{
		{"single activity", []int{1}},
		{"one lesson three activities", []int{3}},
		{"two lessons", []int{2, 1}},
		{"uneven lessons", []int{1, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plans := curriculum(tt.counts...)
			m := NewManager(plans)

			total := 0
			for _, c := range tt.counts {
				total += c
			}
			for i := 0; i < total-1; i++ {
				m.AdvanceToNextActivity()
			}

			last := Cursor{LessonIndex: len(plans) - 1, ActivityIndex: tt.counts[len(tt.counts)-1] - 1}
			if got := m.Cursor(); got != last {
				t.Fatalf("cursor after %d advances = %+v, want %+v", total-1, got, last)
			}

			m.AdvanceToNextActivity()
			if got := m.Cursor(); got != last {
				t.Errorf("advance at end moved cursor to %+v", got)
			}
		})
	}
}

func TestAdvanceAcrossLessons(t *testing.T) {
	m := NewManager(curriculum(2, 1))

	want := []Cursor{{0, 1}, {1, 0}, {1, 0}, {1, 0}}
	for i, w := range want {
		m.AdvanceToNextActivity()
		if got := m.Cursor(); got != w {
			t.Errorf("advance %d: cursor = %+v, want %+v", i+1, got, w)
		}
	}
}

func TestIsCompleteOnlyAtRecordedFinalActivity(t *testing.T) {
	m := NewManager(curriculum(2, 2))

	for step := 0; step < 3; step++ {
		if m.IsComplete() {
			t.Fatalf("complete at step %d (cursor %+v)", step, m.Cursor())
		}
		m.RecordActivity("answer", "reply")
		if m.IsComplete() {
			t.Fatalf("complete after record at non-final cursor %+v", m.Cursor())
		}
		m.AdvanceToNextActivity()
	}

	if m.IsComplete() {
		t.Fatal("complete at final position before any record there")
	}
	m.RecordActivity("final answer", "")
	if !m.IsComplete() {
		t.Fatal("expected complete after recording at final position")
	}
}

func TestSingleActivityCompletesAfterFirstRecord(t *testing.T) {
	m := NewManager(curriculum(1))
	if m.IsComplete() {
		t.Fatal("should not be complete before recording")
	}
	m.RecordActivity("my response", "")

	st, err := m.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if !st.IsComplete {
		t.Error("state should report complete")
	}
}

func TestRecordActivityDoesNotMoveCursor(t *testing.T) {
	m := NewManager(curriculum(3))
	m.AdvanceToNextActivity()
	before := m.Cursor()

	m.RecordActivity("a", "b")
	m.RecordActivity("c", "")

	if got := m.Cursor(); got != before {
		t.Errorf("cursor moved from %+v to %+v", before, got)
	}
	completed := m.Completed()
	if len(completed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(completed))
	}
	for _, c := range completed {
		if c.LessonIndex != 0 || c.ActivityIndex != 1 {
			t.Errorf("record at (%d,%d), want (0,1)", c.LessonIndex, c.ActivityIndex)
		}
	}
}

func TestCurrentState(t *testing.T) {
	plans := curriculum(2, 1)
	m := NewManager(plans)
	m.AdvanceToNextActivity()

	st, err := m.CurrentState()
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if st.LessonPlan.LessonPlan.Objective != "objective 0" {
		t.Errorf("objective = %q", st.LessonPlan.LessonPlan.Objective)
	}
	if st.Activity.Name != "L0-A1" {
		t.Errorf("activity = %q, want L0-A1", st.Activity.Name)
	}
	if len(st.History) != 0 {
		t.Errorf("expected empty history, got %d", len(st.History))
	}

	// The returned history is a copy.
	m.RecordActivity("x", "")
	st2, _ := m.CurrentState()
	st2.History[0].Response = "mutated"
	if m.Completed()[0].Response != "x" {
		t.Error("mutating state history changed the manager log")
	}
}

func TestCurrentStateErrors(t *testing.T) {
	t.Run("empty curriculum", func(t *testing.T) {
		_, err := NewManager(nil).CurrentState()
		if !errors.Is(err, ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got %v", err)
		}
	})

	t.Run("cursor out of range", func(t *testing.T) {
		m := NewManager(curriculum(1))
		m.progress.LessonIndex = 5
		_, err := m.CurrentState()
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("expected ErrInvalidCursor, got %v", err)
		}

		m.progress.LessonIndex = 0
		m.progress.ActivityIndex = 3
		_, err = m.CurrentState()
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("expected ErrInvalidCursor, got %v", err)
		}
		if m.IsComplete() {
			t.Error("invalid cursor must not report complete")
		}
	})

	t.Run("empty lesson", func(t *testing.T) {
		m := NewManager(curriculum(0))
		_, err := m.CurrentState()
		if !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("expected ErrInvalidCursor, got %v", err)
		}
		m.AdvanceToNextActivity()
		if got := m.Cursor(); got != (Cursor{}) {
			t.Errorf("advance on empty lesson moved cursor to %+v", got)
		}
	})
}

func TestSerializeRoundTrip(t *testing.T) {
	plans := curriculum(2, 2)
	m := NewManager(plans)
	m.RecordActivity("first", "ok")
	m.AdvanceToNextActivity()
	m.AdvanceToNextActivity()
	m.RecordActivity("third", "")

	blob, err := m.SerializeProgress()
	if err != nil {
		t.Fatalf("SerializeProgress: %v", err)
	}
	if !strings.Contains(blob, `"currentLessonIndex":1`) {
		t.Errorf("unexpected blob: %s", blob)
	}

	restored, err := RestoreManager(plans, blob)
	if err != nil {
		t.Fatalf("RestoreManager: %v", err)
	}
	if restored.Cursor() != m.Cursor() {
		t.Errorf("cursor = %+v, want %+v", restored.Cursor(), m.Cursor())
	}
	if len(restored.Completed()) != 2 {
		t.Errorf("expected 2 records, got %d", len(restored.Completed()))
	}

	restored.AdvanceToNextActivity()
	restored.RecordActivity("last", "")
	if !restored.IsComplete() {
		t.Error("restored manager should complete at the end")
	}
}

func TestRestoreErrors(t *testing.T) {
	plans := curriculum(1)

	if _, err := RestoreManager(plans, "not json"); err == nil {
		t.Error("expected decode error")
	}

	_, err := RestoreManager(plans, `{"currentLessonIndex":2,"currentActivityIndex":0,"completedActivities":[]}`)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	m := NewManager(curriculum(2, 1))
	m.RecordActivity("a", "")
	m.RecordActivity("a again", "")
	m.AdvanceToNextActivity()

	p := m.Progress()
	if p.TotalLessons != 2 || p.TotalActivities != 3 {
		t.Errorf("totals = %d lessons, %d activities", p.TotalLessons, p.TotalActivities)
	}
	if p.Completed != 1 {
		t.Errorf("completed = %d, want 1 distinct activity", p.Completed)
	}
	if p.ActivityIndex != 1 || p.IsComplete {
		t.Errorf("unexpected progress %+v", p)
	}
}
