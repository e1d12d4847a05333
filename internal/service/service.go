// Package service реализует бизнес-логику сервиса квестборд.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/mmeshcher/questboard-system/internal/model"
	"github.com/mmeshcher/questboard-system/internal/notifier"
	"github.com/mmeshcher/questboard-system/internal/rotation"
	"github.com/mmeshcher/questboard-system/internal/validation"
)

// ErrInvalidStep возвращается для номера шага вне границ активности.
var (
	ErrInvalidStep = errors.New("step id out of range")
	// ErrInvalidAmount возвращается для неположительной суммы начисления.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetActivity(ctx context.Context, activityID int64) (*model.Activity, error)
	ListActivityIDs(ctx context.Context) ([]int64, error)
	GetActivitiesByIDs(ctx context.Context, ids []int64) ([]model.Activity, error)
	StartActivity(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error)
	GetCompletionRecord(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error)
	ListCompletionRecords(ctx context.Context, userID int64) ([]model.CompletionRecord, error)
	SubmitStep(ctx context.Context, userID, activityID int64, stepID int) (*model.CompletionRecord, *model.Settlement, error)
	CreditXP(ctx context.Context, userID, amount int64) (*model.Settlement, error)
	CheckIn(ctx context.Context, userID int64, today time.Time) (int, bool, error)
	GetUserProgress(ctx context.Context, userID int64) (*model.UserProgress, error)
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	GetDailyCompletions(ctx context.Context, userID int64) ([]int64, error)
	ResetDailyCompletions(ctx context.Context, userID int64) error
}

// Notifier описывает контракт доставки событий. Доставка best-effort:
// сервис игнорирует её ошибки.
type Notifier interface {
	Notify(ctx context.Context, userID int64, name string, payload any) error
}

// RotationCache описывает кэш дневных наборов по ключу пользователь+день.
type RotationCache interface {
	Get(ctx context.Context, userID int64, dayKey string) ([]int64, bool, error)
	Set(ctx context.Context, userID int64, dayKey string, ids []int64) error
}

// Service содержит бизнес-логику сервиса квестборд.
type Service struct {
	repo     Repository
	notifier Notifier
	cache    RotationCache
}

// NewService создаёт новый сервис. Notifier и cache могут быть nil:
// события тогда не отправляются, а дневной набор пересчитывается на каждый
// запрос (подбор детерминирован, поэтому результат от этого не меняется).
func NewService(repo Repository, n Notifier, cache RotationCache) *Service {
	return &Service{
		repo:     repo,
		notifier: n,
		cache:    cache,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	return s.repo.CreateUser(ctx, login, hashed)
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// StartActivity начинает прохождение активности пользователем.
func (s *Service) StartActivity(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	if _, err := s.repo.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}

	return s.repo.StartActivity(ctx, userID, activityID)
}

// SubmitStep засчитывает шаг активности. Если шаг завершает активность,
// по результату зачёта отправляются события activity_completed и,
// при повышении уровня, level_up.
func (s *Service) SubmitStep(ctx context.Context, userID, activityID int64, stepID int) (*model.CompletionRecord, *model.Settlement, error) {
	act, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return nil, nil, err
	}

	if !validation.IsValidStepID(stepID, act.CompletionSteps) {
		return nil, nil, ErrInvalidStep
	}

	rec, settlement, err := s.repo.SubmitStep(ctx, userID, activityID, stepID)
	if err != nil {
		return nil, nil, err
	}

	if settlement != nil {
		s.notifySettlement(ctx, userID, settlement)
	}

	return rec, settlement, nil
}

func (s *Service) notifySettlement(ctx context.Context, userID int64, settlement *model.Settlement) {
	if s.notifier == nil {
		return
	}

	if settlement.ActivityID != 0 {
		_ = s.notifier.Notify(ctx, userID, notifier.EventActivityCompleted, map[string]any{
			"activity_id": settlement.ActivityID,
			"xp_awarded":  settlement.XPAwarded,
			"coins":       settlement.CoinsEarned,
			"reference":   settlement.Reference,
		})
	}

	if settlement.NewLevel > settlement.OldLevel {
		_ = s.notifier.Notify(ctx, userID, notifier.EventLevelUp, map[string]any{
			"level": settlement.NewLevel,
		})
	}
}

// GetProgress возвращает запись прохождения одной активности.
func (s *Service) GetProgress(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	return s.repo.GetCompletionRecord(ctx, userID, activityID)
}

// ListProgress возвращает все записи прохождения пользователя.
func (s *Service) ListProgress(ctx context.Context, userID int64) ([]model.CompletionRecord, error) {
	return s.repo.ListCompletionRecords(ctx, userID)
}

// CreditXP начисляет пользователю опыт напрямую.
func (s *Service) CreditXP(ctx context.Context, userID, amount int64) (*model.Settlement, error) {
	if !validation.IsValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	settlement, err := s.repo.CreditXP(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	s.notifySettlement(ctx, userID, settlement)

	return settlement, nil
}

// CheckIn применяет ежедневную отметку пользователя на текущий день UTC.
func (s *Service) CheckIn(ctx context.Context, userID int64) (int, bool, error) {
	return s.repo.CheckIn(ctx, userID, time.Now())
}

// GetUserProgress возвращает накопленный прогресс пользователя.
func (s *Service) GetUserProgress(ctx context.Context, userID int64) (*model.UserProgress, error) {
	return s.repo.GetUserProgress(ctx, userID)
}

// GetWallet возвращает кошелёк пользователя.
func (s *Service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.repo.GetWallet(ctx, userID)
}

// GetTransactionsByUser возвращает журнал операций пользователя.
func (s *Service) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return s.repo.GetTransactionsByUser(ctx, userID)
}

// DailyRotation возвращает дневной набор активностей пользователя на день day.
// Набор читается сквозь кэш; при промахе подбирается заново из каталога за
// вычетом завершённых. Когда завершённые покрывают весь каталог, дневной
// набор завершённых сбрасывается и активности снова доступны для подбора.
func (s *Service) DailyRotation(ctx context.Context, userID int64, day time.Time) ([]model.Activity, error) {
	dayKey := rotation.DayKey(day)

	if s.cache != nil {
		if ids, ok, err := s.cache.Get(ctx, userID, dayKey); err == nil && ok {
			return s.repo.GetActivitiesByIDs(ctx, ids)
		}
	}

	catalogIDs, err := s.repo.ListActivityIDs(ctx)
	if err != nil {
		return nil, err
	}

	completedIDs, err := s.repo.GetDailyCompletions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(catalogIDs) > 0 && len(completedIDs) >= len(catalogIDs) {
		if err := s.repo.ResetDailyCompletions(ctx, userID); err != nil {
			return nil, err
		}
		completedIDs = nil
	}

	ids := rotation.Select(userID, dayKey, catalogIDs, completedIDs)

	if s.cache != nil {
		// Ошибка кэша не мешает отдать набор: подбор детерминирован.
		_ = s.cache.Set(ctx, userID, dayKey, ids)
	}

	return s.repo.GetActivitiesByIDs(ctx, ids)
}
