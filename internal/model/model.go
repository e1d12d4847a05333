// Package model содержит доменные сущности сервиса квестборд.
package model

import "time"

// User представляет зарегистрированного пользователя обучающей платформы.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Activity описывает запись каталога активностей: челлендж, миссию или мини-игру.
// Каталог неизменяемый, сервис его только читает.
type Activity struct {
	ID              int64
	Title           string
	Category        string
	CompletionSteps int
	XPReward        int64
	CoinReward      int64
}

// CompletionRecord описывает прохождение одной активности одним пользователем.
// Пара (UserID, ActivityID) уникальна; CurrentStep равен числу засчитанных шагов.
type CompletionRecord struct {
	UserID         int64
	ActivityID     int64
	CurrentStep    int
	CompletedSteps []int
	IsCompleted    bool
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// UserProgress содержит накопленный опыт и серию ежедневных отметок пользователя.
// Уровень не хранится: он всегда вычисляется из XP.
type UserProgress struct {
	UserID      int64
	XP          int64
	Level       int
	Streak      int
	LastCheckIn *time.Time
}

// Wallet содержит баланс монет пользователя и сумму всех начислений.
type Wallet struct {
	UserID      int64
	Balance     int64
	TotalEarned int64
	LastUpdated time.Time
}

// TransactionType описывает тип операции по кошельку.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
	TransactionTypeReward TransactionType = "REWARD"
)

// TransactionStatus описывает статус операции по кошельку.
type TransactionStatus string

// TransactionStatusCompleted — единственный статус, который пишет этот сервис:
// операция фиксируется в журнале уже применённой.
const TransactionStatusCompleted TransactionStatus = "COMPLETED"

// Transaction описывает одну запись журнала операций. Журнал только добавляемый:
// записи не изменяются и не используются для расчёта баланса.
type Transaction struct {
	ID          int64
	Reference   string
	UserID      int64
	Amount      int64
	Type        TransactionType
	Description string
	Status      TransactionStatus
	CreatedAt   time.Time
}

// Settlement описывает результат зачёта завершённой активности:
// сколько опыта и монет начислено и изменился ли уровень.
type Settlement struct {
	ActivityID  int64
	XPAwarded   int64
	CoinsEarned int64
	NewXP       int64
	OldLevel    int
	NewLevel    int
	Reference   string
}
