// Package handler содержит HTTP-обработчики API сервиса квестборд.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/questboard-system/internal/middleware"
	"github.com/mmeshcher/questboard-system/internal/model"
	"github.com/mmeshcher/questboard-system/internal/repository"
	"github.com/mmeshcher/questboard-system/internal/rotation"
	"github.com/mmeshcher/questboard-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	StartActivity(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error)
	SubmitStep(ctx context.Context, userID, activityID int64, stepID int) (*model.CompletionRecord, *model.Settlement, error)
	GetProgress(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error)
	ListProgress(ctx context.Context, userID int64) ([]model.CompletionRecord, error)
	CreditXP(ctx context.Context, userID, amount int64) (*model.Settlement, error)
	CheckIn(ctx context.Context, userID int64) (int, bool, error)
	GetUserProgress(ctx context.Context, userID int64) (*model.UserProgress, error)
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	DailyRotation(ctx context.Context, userID int64, day time.Time) ([]model.Activity, error)
}

// Handler реализует HTTP-обработчики API сервиса квестборд.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type completionRecordResponse struct {
	ActivityID     int64  `json:"activity_id"`
	CurrentStep    int    `json:"current_step"`
	CompletedSteps []int  `json:"completed_steps"`
	IsCompleted    bool   `json:"is_completed"`
	StartedAt      string `json:"started_at"`
	CompletedAt    string `json:"completed_at,omitempty"`
}

func toRecordResponse(rec *model.CompletionRecord) completionRecordResponse {
	resp := completionRecordResponse{
		ActivityID:     rec.ActivityID,
		CurrentStep:    rec.CurrentStep,
		CompletedSteps: rec.CompletedSteps,
		IsCompleted:    rec.IsCompleted,
		StartedAt:      rec.StartedAt.Format(time.RFC3339),
	}
	if rec.CompletedAt != nil {
		resp.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

type settlementResponse struct {
	ActivityID  int64  `json:"activity_id,omitempty"`
	XPAwarded   int64  `json:"xp_awarded"`
	CoinsEarned int64  `json:"coins_earned"`
	NewXP       int64  `json:"new_xp"`
	OldLevel    int    `json:"old_level"`
	NewLevel    int    `json:"new_level"`
	Reference   string `json:"reference,omitempty"`
}

func toSettlementResponse(s *model.Settlement) *settlementResponse {
	if s == nil {
		return nil
	}
	return &settlementResponse{
		ActivityID:  s.ActivityID,
		XPAwarded:   s.XPAwarded,
		CoinsEarned: s.CoinsEarned,
		NewXP:       s.NewXP,
		OldLevel:    s.OldLevel,
		NewLevel:    s.NewLevel,
		Reference:   s.Reference,
	}
}

func activityIDFromURL(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "activityID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// StartActivity начинает прохождение активности текущим пользователем.
func (h *Handler) StartActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	activityID, ok := activityIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, err := h.service.StartActivity(r.Context(), userID, activityID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrActivityNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrAlreadyStarted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("start activity error", zap.Error(err), zap.Int64("activityID", activityID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, toRecordResponse(rec))
}

type submitStepRequest struct {
	Step int `json:"step"`
}

type submitStepResponse struct {
	Record     completionRecordResponse `json:"record"`
	Settlement *settlementResponse      `json:"settlement,omitempty"`
}

// SubmitStep засчитывает шаг активности текущего пользователя.
func (h *Handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	activityID, ok := activityIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req submitStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, settlement, err := h.service.SubmitStep(r.Context(), userID, activityID, req.Step)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrActivityNotFound), errors.Is(err, repository.ErrProgressNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrAlreadyCompleted), errors.Is(err, repository.ErrStepAlreadyCompleted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrInvalidStep):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("submit step error", zap.Error(err),
				zap.Int64("activityID", activityID), zap.Int("step", req.Step))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, submitStepResponse{
		Record:     toRecordResponse(rec),
		Settlement: toSettlementResponse(settlement),
	})
}

// GetActivityProgress возвращает запись прохождения одной активности.
func (h *Handler) GetActivityProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	activityID, ok := activityIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, err := h.service.GetProgress(r.Context(), userID, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrProgressNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get progress error", zap.Error(err), zap.Int64("activityID", activityID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toRecordResponse(rec))
}

// ListActivityProgress возвращает все записи прохождения текущего пользователя.
func (h *Handler) ListActivityProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	records, err := h.service.ListProgress(r.Context(), userID)
	if err != nil {
		h.logger.Error("list progress error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(records) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]completionRecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toRecordResponse(&records[i]))
	}

	writeJSON(w, h.logger, resp)
}

type userProgressResponse struct {
	XP          int64  `json:"xp"`
	Level       int    `json:"level"`
	Streak      int    `json:"streak"`
	LastCheckIn string `json:"last_check_in,omitempty"`
}

// GetUserProgress возвращает сводный прогресс текущего пользователя.
func (h *Handler) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	p, err := h.service.GetUserProgress(r.Context(), userID)
	if err != nil {
		h.logger.Error("get user progress error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := userProgressResponse{
		XP:     p.XP,
		Level:  p.Level,
		Streak: p.Streak,
	}
	if p.LastCheckIn != nil {
		resp.LastCheckIn = rotation.DayKey(*p.LastCheckIn)
	}

	writeJSON(w, h.logger, resp)
}

type creditXPRequest struct {
	Amount int64 `json:"amount"`
}

// CreditXP начисляет опыт текущему пользователю.
func (h *Handler) CreditXP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req creditXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	settlement, err := h.service.CreditXP(r.Context(), userID, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("credit xp error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, toSettlementResponse(settlement))
}

type checkInResponse struct {
	Streak  int  `json:"streak"`
	Changed bool `json:"changed"`
}

// CheckIn применяет ежедневную отметку текущего пользователя.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	streak, changed, err := h.service.CheckIn(r.Context(), userID)
	if err != nil {
		h.logger.Error("check-in error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, checkInResponse{Streak: streak, Changed: changed})
}

type walletResponse struct {
	Balance     int64  `json:"balance"`
	TotalEarned int64  `json:"total_earned"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// GetBalance возвращает кошелёк текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		h.logger.Error("get balance error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := walletResponse{
		Balance:     wallet.Balance,
		TotalEarned: wallet.TotalEarned,
	}
	if !wallet.LastUpdated.IsZero() {
		resp.LastUpdated = wallet.LastUpdated.Format(time.RFC3339)
	}

	writeJSON(w, h.logger, resp)
}

type transactionResponse struct {
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// GetTransactions возвращает журнал операций текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	transactions, err := h.service.GetTransactionsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get transactions error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(transactions) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, transactionResponse{
			Reference:   t.Reference,
			Amount:      t.Amount,
			Type:        string(t.Type),
			Description: t.Description,
			Status:      string(t.Status),
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, h.logger, resp)
}

type activityResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	CompletionSteps int    `json:"completion_steps"`
	XPReward        int64  `json:"xp_reward"`
	CoinReward      int64  `json:"coin_reward"`
}

// GetDailyRotation возвращает дневной набор активностей текущего пользователя.
// Необязательный параметр date задаёт день в формате YYYY-MM-DD.
func (h *Handler) GetDailyRotation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	day := time.Now()
	if date := r.URL.Query().Get("date"); date != "" {
		parsed, err := rotation.ParseDayKey(date)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		day = parsed
	}

	activities, err := h.service.DailyRotation(r.Context(), userID, day)
	if err != nil {
		h.logger.Error("daily rotation error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, activityResponse{
			ID:              a.ID,
			Title:           a.Title,
			Category:        a.Category,
			CompletionSteps: a.CompletionSteps,
			XPReward:        a.XPReward,
			CoinReward:      a.CoinReward,
		})
	}

	writeJSON(w, h.logger, resp)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response error", zap.Error(err))
	}
}
