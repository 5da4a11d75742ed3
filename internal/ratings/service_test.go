package ratings

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusrun/backend/internal/apperr"
	"github.com/campusrun/backend/internal/models"
	"github.com/campusrun/backend/internal/notify"
)

// ---------------------------------------------------------------------------
// In-memory mocks
// ---------------------------------------------------------------------------

type fakeTx struct {
	pgx.Tx
}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type memRatings struct {
	mu   sync.Mutex
	rows []*models.Rating
}

func (m *memRatings) CreateTx(_ context.Context, _ pgx.Tx, rt *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TaskID == rt.TaskID && r.RatedBy == rt.RatedBy {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_ratings_task_rater"}
		}
	}
	cp := *rt
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memRatings) CountForTaskTx(_ context.Context, _ pgx.Tx, taskID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.TaskID == taskID {
			n++
		}
	}
	return n, nil
}

func (m *memRatings) RevealForTaskTx(_ context.Context, _ pgx.Tx, taskID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TaskID == taskID {
			r.IsHidden = false
		}
	}
	return nil
}

func (m *memRatings) VisibleForUser(_ context.Context, userID uuid.UUID, limit int) ([]*models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Rating
	for _, r := range m.rows {
		if r.RatedUser == userID && !r.IsHidden && r.Comment != nil && len(out) < limit {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRatings) AverageForUser(_ context.Context, userID uuid.UUID) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, n := 0, 0
	for _, r := range m.rows {
		if r.RatedUser == userID && !r.IsHidden {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

func (m *memRatings) forTask(taskID uuid.UUID) []*models.Rating {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Rating
	for _, r := range m.rows {
		if r.TaskID == taskID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

type stubTasks struct {
	task    *models.Task
	journal *callJournal
}

func (s *stubTasks) GetForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	if s.journal != nil {
		s.journal.add("lock task")
	}
	if tx == nil {
		return nil, errors.New("lock requested outside a transaction")
	}
	if s.task == nil || s.task.ID != id {
		return nil, pgx.ErrNoRows
	}
	cp := *s.task
	return &cp, nil
}

// callJournal records the order of repository calls during a submit.
type callJournal struct {
	mu  sync.Mutex
	ops []string
}

func (j *callJournal) add(op string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, op)
}

type journalStore struct {
	*memRatings
	journal *callJournal
}

func (s *journalStore) CountForTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error) {
	s.journal.add("count")
	return s.memRatings.CountForTaskTx(ctx, tx, taskID)
}

type eventSink struct {
	mu     sync.Mutex
	events []notify.EventArgs
}

func (s *eventSink) enqueue(_ context.Context, _ pgx.Tx, args notify.EventArgs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, args)
	return nil
}

func completedTask(poster, helper uuid.UUID) *models.Task {
	return &models.Task{
		ID:         uuid.New(),
		Title:      "Return library books",
		Status:     models.TaskStatusCompleted,
		RewardType: models.RewardCredits,
		PostedBy:   poster,
		AcceptedBy: &helper,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSubmit_HiddenUntilMutual(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)

	store := &memRatings{}
	sink := &eventSink{}
	svc := NewService(fakeDB{}, store, &stubTasks{task: task}, sink.enqueue)
	ctx := context.Background()

	first, err := svc.Submit(ctx, poster, task.ID, helper, 5, "Fast and friendly")
	if err != nil {
		t.Fatalf("poster submit: %v", err)
	}
	if !first.IsHidden {
		t.Fatal("a lone rating must stay hidden")
	}

	second, err := svc.Submit(ctx, helper, task.ID, poster, 4, "Clear instructions")
	if err != nil {
		t.Fatalf("helper submit: %v", err)
	}
	if second.IsHidden {
		t.Fatal("the second rating should be revealed immediately")
	}

	// Both rows flipped visible together.
	for _, r := range store.forTask(task.ID) {
		if r.IsHidden {
			t.Errorf("rating by %s still hidden after mutual submit", r.RatedBy)
		}
	}

	// Each party was notified about the rating they received.
	if len(sink.events) != 2 {
		t.Fatalf("rating events: got %d, want 2", len(sink.events))
	}
	if sink.events[0].UserID != helper || sink.events[1].UserID != poster {
		t.Error("rating notifications should go to the rated user")
	}
}

// Two simultaneous submitters must not both count before either insert
// is visible; the service takes the task row lock first so the count
// always runs serialized. The in-memory store cannot reproduce snapshot
// visibility, so this pins the lock-then-count ordering instead.
func TestSubmit_CountsUnderTaskLock(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)

	journal := &callJournal{}
	store := &journalStore{memRatings: &memRatings{}, journal: journal}
	sink := &eventSink{}
	svc := NewService(fakeDB{}, store, &stubTasks{task: task, journal: journal}, sink.enqueue)

	if _, err := svc.Submit(context.Background(), poster, task.ID, helper, 5, "Quick"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	lock := slices.Index(journal.ops, "lock task")
	count := slices.Index(journal.ops, "count")
	if lock == -1 || count == -1 || lock > count {
		t.Fatalf("call order %v: task row must be locked before counting ratings", journal.ops)
	}
}

func TestSubmit_DoubleRateRefused(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)

	store := &memRatings{}
	svc := NewService(fakeDB{}, store, &stubTasks{task: task}, (&eventSink{}).enqueue)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, poster, task.ID, helper, 5, ""); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(ctx, poster, task.ID, helper, 3, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on second rating, got %v", err)
	}
	if n := len(store.forTask(task.ID)); n != 1 {
		t.Errorf("stored ratings: got %d, want 1", n)
	}
}

func TestSubmit_ScoreRange(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)
	svc := NewService(fakeDB{}, &memRatings{}, &stubTasks{task: task}, (&eventSink{}).enqueue)

	for _, score := range []int{0, -1, 6, 100} {
		if _, err := svc.Submit(context.Background(), poster, task.ID, helper, score, ""); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("score %d: expected validation error, got %v", score, err)
		}
	}
}

func TestSubmit_TaskNotCompleted(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)
	task.Status = models.TaskStatusAccepted
	svc := NewService(fakeDB{}, &memRatings{}, &stubTasks{task: task}, (&eventSink{}).enqueue)

	if _, err := svc.Submit(context.Background(), poster, task.ID, helper, 5, ""); !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestSubmit_PartyChecks(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)
	svc := NewService(fakeDB{}, &memRatings{}, &stubTasks{task: task}, (&eventSink{}).enqueue)
	ctx := context.Background()

	// Outsider cannot rate.
	if _, err := svc.Submit(ctx, uuid.New(), task.ID, helper, 5, ""); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("outsider: expected unauthorized, got %v", err)
	}
	// Cannot rate yourself.
	if _, err := svc.Submit(ctx, poster, task.ID, poster, 5, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self rating: expected validation error, got %v", err)
	}
	// Rated user must be the counterparty.
	if _, err := svc.Submit(ctx, poster, task.ID, uuid.New(), 5, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("outsider rated: expected validation error, got %v", err)
	}
}

func TestSubmit_UnknownTask(t *testing.T) {
	svc := NewService(fakeDB{}, &memRatings{}, &stubTasks{}, (&eventSink{}).enqueue)

	if _, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), uuid.New(), 5, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestForProfile(t *testing.T) {
	poster, helper := uuid.New(), uuid.New()
	task := completedTask(poster, helper)

	store := &memRatings{}
	svc := NewService(fakeDB{}, store, &stubTasks{task: task}, (&eventSink{}).enqueue)
	ctx := context.Background()

	// Before the mutual reveal nothing is visible.
	if _, err := svc.Submit(ctx, poster, task.ID, helper, 5, "Great work"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	list, avg, count, err := svc.ForProfile(ctx, helper)
	if err != nil {
		t.Fatalf("ForProfile: %v", err)
	}
	if len(list) != 0 || count != 0 {
		t.Fatalf("hidden rating leaked: list=%d count=%d", len(list), count)
	}

	if _, err := svc.Submit(ctx, helper, task.ID, poster, 4, ""); err != nil {
		t.Fatalf("mutual submit: %v", err)
	}
	list, avg, count, err = svc.ForProfile(ctx, helper)
	if err != nil {
		t.Fatalf("ForProfile after reveal: %v", err)
	}
	if count != 1 || avg != 5.0 {
		t.Errorf("helper stats: got avg=%v count=%d, want avg=5 count=1", avg, count)
	}
	if len(list) != 1 || *list[0].Comment != "Great work" {
		t.Errorf("visible list: got %d entries", len(list))
	}

	// The comment-less rating counts toward the average but not the list.
	list, avg, count, err = svc.ForProfile(ctx, poster)
	if err != nil {
		t.Fatalf("ForProfile poster: %v", err)
	}
	if count != 1 || avg != 4.0 {
		t.Errorf("poster stats: got avg=%v count=%d, want avg=4 count=1", avg, count)
	}
	if len(list) != 0 {
		t.Errorf("comment-less rating should not appear in the list, got %d", len(list))
	}
}
