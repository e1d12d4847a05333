package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/questboard-system/internal/model"
	"github.com/mmeshcher/questboard-system/internal/notifier"
	"github.com/mmeshcher/questboard-system/internal/repository"
)

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

type stubRepo struct {
	activity    *model.Activity
	activityErr error

	record    *model.CompletionRecord
	recordErr error

	settlement  *model.Settlement
	submitErr   error
	submitCalls int
	lastStepID  int
	creditErr   error
	creditCalls int

	catalogIDs   []int64
	completedIDs []int64
	activities   []model.Activity
	listCalls    int
	resetCalls   int
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) GetActivity(ctx context.Context, activityID int64) (*model.Activity, error) {
	return s.activity, s.activityErr
}

func (s *stubRepo) ListActivityIDs(ctx context.Context) ([]int64, error) {
	s.listCalls++
	return s.catalogIDs, nil
}

func (s *stubRepo) GetActivitiesByIDs(ctx context.Context, ids []int64) ([]model.Activity, error) {
	if s.activities != nil {
		return s.activities, nil
	}
	res := make([]model.Activity, 0, len(ids))
	for _, id := range ids {
		res = append(res, model.Activity{ID: id})
	}
	return res, nil
}

func (s *stubRepo) StartActivity(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	return s.record, s.recordErr
}

func (s *stubRepo) GetCompletionRecord(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	return s.record, s.recordErr
}

func (s *stubRepo) ListCompletionRecords(ctx context.Context, userID int64) ([]model.CompletionRecord, error) {
	return nil, nil
}

func (s *stubRepo) SubmitStep(ctx context.Context, userID, activityID int64, stepID int) (*model.CompletionRecord, *model.Settlement, error) {
	s.submitCalls++
	s.lastStepID = stepID
	return s.record, s.settlement, s.submitErr
}

func (s *stubRepo) CreditXP(ctx context.Context, userID, amount int64) (*model.Settlement, error) {
	s.creditCalls++
	return s.settlement, s.creditErr
}

func (s *stubRepo) CheckIn(ctx context.Context, userID int64, today time.Time) (int, bool, error) {
	return 1, true, nil
}

func (s *stubRepo) GetUserProgress(ctx context.Context, userID int64) (*model.UserProgress, error) {
	return &model.UserProgress{UserID: userID, Level: 1}, nil
}

func (s *stubRepo) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return &model.Wallet{UserID: userID}, nil
}

func (s *stubRepo) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return nil, nil
}

func (s *stubRepo) GetDailyCompletions(ctx context.Context, userID int64) ([]int64, error) {
	return s.completedIDs, nil
}

func (s *stubRepo) ResetDailyCompletions(ctx context.Context, userID int64) error {
	s.resetCalls++
	return nil
}

type stubNotifier struct {
	events []string
}

func (n *stubNotifier) Notify(ctx context.Context, userID int64, name string, payload any) error {
	n.events = append(n.events, name)
	return errors.New("delivery failed")
}

type stubCache struct {
	ids []int64
	hit bool

	setIDs []int64
	setKey string
}

func (c *stubCache) Get(ctx context.Context, userID int64, dayKey string) ([]int64, bool, error) {
	return c.ids, c.hit, nil
}

func (c *stubCache) Set(ctx context.Context, userID int64, dayKey string, ids []int64) error {
	c.setIDs = ids
	c.setKey = dayKey
	return nil
}

func TestStartActivity_ActivityNotFound(t *testing.T) {
	repo := &stubRepo{activityErr: repository.ErrActivityNotFound}
	svc := NewService(repo, nil, nil)

	_, err := svc.StartActivity(context.Background(), 1, 99)
	if !errors.Is(err, repository.ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestSubmitStep_InvalidStep(t *testing.T) {
	repo := &stubRepo{
		activity: &model.Activity{ID: 5, CompletionSteps: 3},
	}
	svc := NewService(repo, nil, nil)

	for _, stepID := range []int{0, 4, -1} {
		_, _, err := svc.SubmitStep(context.Background(), 1, 5, stepID)
		if !errors.Is(err, ErrInvalidStep) {
			t.Fatalf("step %d: expected ErrInvalidStep, got %v", stepID, err)
		}
	}

	if repo.submitCalls != 0 {
		t.Fatalf("repo.SubmitStep called %d times for invalid steps", repo.submitCalls)
	}
}

func TestSubmitStep_PropagatesConflicts(t *testing.T) {
	for _, sentinel := range []error{
		repository.ErrAlreadyCompleted,
		repository.ErrStepAlreadyCompleted,
		repository.ErrProgressNotFound,
	} {
		repo := &stubRepo{
			activity:  &model.Activity{ID: 5, CompletionSteps: 3},
			submitErr: sentinel,
		}
		svc := NewService(repo, nil, nil)

		_, _, err := svc.SubmitStep(context.Background(), 1, 5, 1)
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected %v, got %v", sentinel, err)
		}
	}
}

func TestSubmitStep_CompletionNotifies(t *testing.T) {
	repo := &stubRepo{
		activity: &model.Activity{ID: 5, CompletionSteps: 1, XPReward: 20, CoinReward: 10},
		record:   &model.CompletionRecord{UserID: 1, ActivityID: 5, IsCompleted: true},
		settlement: &model.Settlement{
			ActivityID:  5,
			XPAwarded:   20,
			CoinsEarned: 60,
			NewXP:       110,
			OldLevel:    1,
			NewLevel:    2,
		},
	}
	n := &stubNotifier{}
	svc := NewService(repo, n, nil)

	_, settlement, err := svc.SubmitStep(context.Background(), 1, 5, 1)
	if err != nil {
		t.Fatalf("SubmitStep error: %v", err)
	}
	if settlement == nil {
		t.Fatalf("expected settlement")
	}

	// Ошибки доставки best-effort: запрос успешен, события отправлены по разу.
	if len(n.events) != 2 {
		t.Fatalf("events = %v, want [activity_completed level_up]", n.events)
	}
	if n.events[0] != notifier.EventActivityCompleted || n.events[1] != notifier.EventLevelUp {
		t.Fatalf("unexpected events: %v", n.events)
	}
}

func TestSubmitStep_NoSettlementNoNotify(t *testing.T) {
	repo := &stubRepo{
		activity: &model.Activity{ID: 5, CompletionSteps: 3},
		record:   &model.CompletionRecord{UserID: 1, ActivityID: 5, CurrentStep: 1},
	}
	n := &stubNotifier{}
	svc := NewService(repo, n, nil)

	_, settlement, err := svc.SubmitStep(context.Background(), 1, 5, 1)
	if err != nil {
		t.Fatalf("SubmitStep error: %v", err)
	}
	if settlement != nil {
		t.Fatalf("unexpected settlement: %+v", settlement)
	}
	if len(n.events) != 0 {
		t.Fatalf("unexpected events: %v", n.events)
	}
}

func TestCreditXP_InvalidAmount(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil)

	for _, amount := range []int64{0, -10} {
		_, err := svc.CreditXP(context.Background(), 1, amount)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	if repo.creditCalls != 0 {
		t.Fatalf("repo.CreditXP called %d times for invalid amounts", repo.creditCalls)
	}
}

func TestDailyRotation_CacheHit(t *testing.T) {
	repo := &stubRepo{catalogIDs: []int64{1, 2, 3}}
	cache := &stubCache{ids: []int64{2, 3}, hit: true}
	svc := NewService(repo, nil, cache)

	acts, err := svc.DailyRotation(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("DailyRotation error: %v", err)
	}
	if len(acts) != 2 || acts[0].ID != 2 || acts[1].ID != 3 {
		t.Fatalf("unexpected activities: %+v", acts)
	}
	if repo.listCalls != 0 {
		t.Fatalf("catalog queried on cache hit")
	}
}

func TestDailyRotation_DeterministicWithoutCache(t *testing.T) {
	repo := &stubRepo{catalogIDs: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	svc := NewService(repo, nil, nil)

	day := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)

	a, err := svc.DailyRotation(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("DailyRotation error: %v", err)
	}
	b, err := svc.DailyRotation(context.Background(), 1, day)
	if err != nil {
		t.Fatalf("DailyRotation error: %v", err)
	}

	if len(a) != 10 || len(b) != 10 {
		t.Fatalf("lens = %d, %d, want 10", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("rotation not stable within a day: %+v vs %+v", a, b)
		}
	}
}

func TestDailyRotation_ResetsWhenExhausted(t *testing.T) {
	repo := &stubRepo{
		catalogIDs:   []int64{1, 2, 3},
		completedIDs: []int64{1, 2, 3},
	}
	cache := &stubCache{}
	svc := NewService(repo, nil, cache)

	acts, err := svc.DailyRotation(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("DailyRotation error: %v", err)
	}

	if repo.resetCalls != 1 {
		t.Fatalf("resetCalls = %d, want 1", repo.resetCalls)
	}
	if len(acts) != 3 {
		t.Fatalf("len = %d, want full catalog after reset", len(acts))
	}
	if len(cache.setIDs) != 3 {
		t.Fatalf("cache not populated: %v", cache.setIDs)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.AuthenticateUser(context.Background(), "user", "pass")
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
