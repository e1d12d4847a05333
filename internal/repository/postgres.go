// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/questboard-system/internal/model"
	"github.com/mmeshcher/questboard-system/internal/reward"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrActivityNotFound возвращается, если активность отсутствует в каталоге.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrProgressNotFound возвращается, если запись прохождения не найдена.
	ErrProgressNotFound = errors.New("completion record not found")
	// ErrAlreadyStarted возвращается при повторном старте уже начатой активности.
	ErrAlreadyStarted = errors.New("activity already started")
	// ErrAlreadyCompleted возвращается при отправке шага в завершённую активность.
	ErrAlreadyCompleted = errors.New("activity already completed")
	// ErrStepAlreadyCompleted возвращается при повторной отправке уже засчитанного шага.
	ErrStepAlreadyCompleted = errors.New("step already completed")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: serialization failure,
// deadlock и обрывах соединения. Клиентские ошибки не ретраятся.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(1*time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// GetActivity возвращает запись каталога активностей по идентификатору.
func (r *PostgresRepository) GetActivity(ctx context.Context, activityID int64) (*model.Activity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, category, completion_steps, xp_reward, coin_reward
		 FROM activities
		 WHERE id = $1`,
		activityID,
	)

	var a model.Activity
	err := row.Scan(&a.ID, &a.Title, &a.Category, &a.CompletionSteps, &a.XPReward, &a.CoinReward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrActivityNotFound, activityID)
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}

	return &a, nil
}

// ListActivityIDs возвращает идентификаторы всех активностей каталога.
func (r *PostgresRepository) ListActivityIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select activity ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan activity id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// GetActivitiesByIDs возвращает записи каталога для перечисленных идентификаторов
// в порядке перечисления. Отсутствующие идентификаторы пропускаются.
func (r *PostgresRepository) GetActivitiesByIDs(ctx context.Context, ids []int64) ([]model.Activity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, category, completion_steps, xp_reward, coin_reward
		 FROM activities
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select activities: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]model.Activity, len(ids))
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.Title, &a.Category, &a.CompletionSteps, &a.XPReward, &a.CoinReward); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		byID[a.ID] = a
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	res := make([]model.Activity, 0, len(byID))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			res = append(res, a)
		}
	}

	return res, nil
}

// StartActivity создаёт запись прохождения активности пользователем.
// Повторный старт возвращает ErrAlreadyStarted, а не молчаливый успех.
func (r *PostgresRepository) StartActivity(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO completion_records (user_id, activity_id) VALUES ($1, $2) ON CONFLICT (user_id, activity_id) DO NOTHING`,
		userID, activityID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, fmt.Errorf("%w: %d", ErrActivityNotFound, activityID)
		}
		return nil, fmt.Errorf("insert completion record: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return nil, ErrAlreadyStarted
	}

	return r.GetCompletionRecord(ctx, userID, activityID)
}

// GetCompletionRecord возвращает запись прохождения с перечнем засчитанных шагов.
func (r *PostgresRepository) GetCompletionRecord(ctx context.Context, userID, activityID int64) (*model.CompletionRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT r.user_id, r.activity_id, r.current_step, r.is_completed, r.started_at, r.completed_at,
		        COALESCE((SELECT array_agg(s.step_id ORDER BY s.step_id)
		                  FROM completion_steps s
		                  WHERE s.user_id = r.user_id AND s.activity_id = r.activity_id), '{}')
		 FROM completion_records r
		 WHERE r.user_id = $1 AND r.activity_id = $2`,
		userID, activityID,
	)

	var rec model.CompletionRecord
	err := row.Scan(&rec.UserID, &rec.ActivityID, &rec.CurrentStep, &rec.IsCompleted, &rec.StartedAt, &rec.CompletedAt, &rec.CompletedSteps)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("get completion record: %w", err)
	}

	return &rec, nil
}

// ListCompletionRecords возвращает все записи прохождения пользователя.
func (r *PostgresRepository) ListCompletionRecords(ctx context.Context, userID int64) ([]model.CompletionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.user_id, r.activity_id, r.current_step, r.is_completed, r.started_at, r.completed_at,
		        COALESCE((SELECT array_agg(s.step_id ORDER BY s.step_id)
		                  FROM completion_steps s
		                  WHERE s.user_id = r.user_id AND s.activity_id = r.activity_id), '{}')
		 FROM completion_records r
		 WHERE r.user_id = $1
		 ORDER BY r.started_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select completion records: %w", err)
	}
	defer rows.Close()

	var res []model.CompletionRecord
	for rows.Next() {
		var rec model.CompletionRecord
		if err := rows.Scan(&rec.UserID, &rec.ActivityID, &rec.CurrentStep, &rec.IsCompleted, &rec.StartedAt, &rec.CompletedAt, &rec.CompletedSteps); err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SubmitStep засчитывает шаг активности. При достижении порога шагов запись
// одной транзакцией переводится в завершённые и выполняется зачёт наград:
// начисление опыта, пополнение кошелька, запись в журнал операций и отметка
// в дневном наборе завершённых активностей. Условное обновление is_completed
// гарантирует ровно один зачёт даже при конкурентных отправках шагов.
func (r *PostgresRepository) SubmitStep(ctx context.Context, userID, activityID int64, stepID int) (*model.CompletionRecord, *model.Settlement, error) {
	var settlement *model.Settlement

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		settlement, err = r.submitStepTx(ctx, userID, activityID, stepID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	rec, err := r.GetCompletionRecord(ctx, userID, activityID)
	if err != nil {
		return nil, nil, err
	}

	return rec, settlement, nil
}

func (r *PostgresRepository) submitStepTx(ctx context.Context, userID, activityID int64, stepID int) (*model.Settlement, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем запись прохождения: конкурентные отправки шагов одной
	// активности выполняются последовательно.
	var isCompleted bool
	err = tx.QueryRow(ctx,
		`SELECT is_completed FROM completion_records WHERE user_id = $1 AND activity_id = $2 FOR UPDATE`,
		userID, activityID,
	).Scan(&isCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("lock completion record: %w", err)
	}

	if isCompleted {
		return nil, ErrAlreadyCompleted
	}

	var act model.Activity
	err = tx.QueryRow(ctx,
		`SELECT id, title, category, completion_steps, xp_reward, coin_reward FROM activities WHERE id = $1`,
		activityID,
	).Scan(&act.ID, &act.Title, &act.Category, &act.CompletionSteps, &act.XPReward, &act.CoinReward)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO completion_steps (user_id, activity_id, step_id) VALUES ($1, $2, $3)`,
		userID, activityID, stepID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: step %d", ErrStepAlreadyCompleted, stepID)
		}
		return nil, fmt.Errorf("insert step: %w", err)
	}

	// current_step — число засчитанных шагов, не максимальный номер шага.
	var stepCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM completion_steps WHERE user_id = $1 AND activity_id = $2`,
		userID, activityID,
	).Scan(&stepCount)
	if err != nil {
		return nil, fmt.Errorf("count steps: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE completion_records SET current_step = $3 WHERE user_id = $1 AND activity_id = $2`,
		userID, activityID, stepCount,
	)
	if err != nil {
		return nil, fmt.Errorf("update current step: %w", err)
	}

	var settlement *model.Settlement
	if stepCount >= act.CompletionSteps {
		cmdTag, err := tx.Exec(ctx,
			`UPDATE completion_records
			 SET is_completed = true, completed_at = now()
			 WHERE user_id = $1 AND activity_id = $2 AND is_completed = false`,
			userID, activityID,
		)
		if err != nil {
			return nil, fmt.Errorf("complete record: %w", err)
		}

		// Переход false -> true случается не более одного раза; зачёт
		// наград выполняется только вместе с ним.
		if cmdTag.RowsAffected() == 1 {
			settlement, err = r.settle(ctx, tx, userID, &act)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return settlement, nil
}

// settle выполняет зачёт наград за завершённую активность внутри транзакции tx.
func (r *PostgresRepository) settle(ctx context.Context, tx pgx.Tx, userID int64, act *model.Activity) (*model.Settlement, error) {
	xp, streak, _, err := r.lockUserProgress(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	oldLevel := reward.LevelFromXP(xp)
	newXP := xp + act.XPReward
	newLevel := reward.LevelFromXP(newXP)

	coins := reward.SettlementCoins(act.CoinReward, streak, oldLevel, newLevel)

	_, err = tx.Exec(ctx,
		`UPDATE user_progress SET xp = $2 WHERE user_id = $1`,
		userID, newXP,
	)
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	description := fmt.Sprintf("reward for activity %q", act.Title)
	ref, err := r.creditWallet(ctx, tx, userID, coins, model.TransactionTypeReward, description)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO daily_completions (user_id, activity_id) VALUES ($1, $2) ON CONFLICT (user_id, activity_id) DO NOTHING`,
		userID, act.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert daily completion: %w", err)
	}

	return &model.Settlement{
		ActivityID:  act.ID,
		XPAwarded:   act.XPReward,
		CoinsEarned: coins,
		NewXP:       newXP,
		OldLevel:    oldLevel,
		NewLevel:    newLevel,
		Reference:   ref,
	}, nil
}

// lockUserProgress создаёт при необходимости строку прогресса пользователя
// и блокирует её до конца транзакции.
func (r *PostgresRepository) lockUserProgress(ctx context.Context, tx pgx.Tx, userID int64) (int64, int, *time.Time, error) {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_progress (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("ensure progress: %w", err)
	}

	var (
		xp          int64
		streak      int
		lastCheckIn *time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT xp, streak, last_check_in FROM user_progress WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&xp, &streak, &lastCheckIn)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("lock progress: %w", err)
	}

	return xp, streak, lastCheckIn, nil
}

// creditWallet пополняет кошелёк и добавляет запись в журнал операций.
// Обе записи всегда выполняются в одной транзакции, чтобы баланс и журнал
// не могли разойтись.
func (r *PostgresRepository) creditWallet(ctx context.Context, tx pgx.Tx, userID, amount int64, txType model.TransactionType, description string) (string, error) {
	_, err := tx.Exec(ctx,
		`INSERT INTO wallets (user_id, balance, total_earned, last_updated)
		 VALUES ($1, $2, $2, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = wallets.balance + EXCLUDED.balance,
		     total_earned = wallets.total_earned + EXCLUDED.total_earned,
		     last_updated = now()`,
		userID, amount,
	)
	if err != nil {
		return "", fmt.Errorf("credit wallet: %w", err)
	}

	ref := uuid.NewString()
	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (reference, user_id, amount, type, description, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ref, userID, amount, string(txType), description, string(model.TransactionStatusCompleted),
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	return ref, nil
}

// CreditXP начисляет опыт напрямую. Если начисление повышает уровень,
// бонусные монеты за уровень зачисляются в той же транзакции.
func (r *PostgresRepository) CreditXP(ctx context.Context, userID, amount int64) (*model.Settlement, error) {
	var settlement *model.Settlement

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		xp, _, _, err := r.lockUserProgress(ctx, tx, userID)
		if err != nil {
			return err
		}

		oldLevel := reward.LevelFromXP(xp)
		newXP := xp + amount
		newLevel := reward.LevelFromXP(newXP)

		_, err = tx.Exec(ctx,
			`UPDATE user_progress SET xp = $2 WHERE user_id = $1`,
			userID, newXP,
		)
		if err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		var ref string
		coins := reward.LevelUpBonus(oldLevel, newLevel)
		if coins > 0 {
			description := fmt.Sprintf("level up bonus: level %d", newLevel)
			ref, err = r.creditWallet(ctx, tx, userID, coins, model.TransactionTypeCredit, description)
			if err != nil {
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		settlement = &model.Settlement{
			XPAwarded:   amount,
			CoinsEarned: coins,
			NewXP:       newXP,
			OldLevel:    oldLevel,
			NewLevel:    newLevel,
			Reference:   ref,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// CheckIn применяет ежедневную отметку пользователя на день today.
// Повторная отметка в тот же день ничего не меняет.
func (r *PostgresRepository) CheckIn(ctx context.Context, userID int64, today time.Time) (int, bool, error) {
	var (
		streak  int
		changed bool
	)

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, cur, lastCheckIn, err := r.lockUserProgress(ctx, tx, userID)
		if err != nil {
			return err
		}

		streak, changed = reward.NextStreak(lastCheckIn, cur, today)
		if changed {
			_, err = tx.Exec(ctx,
				`UPDATE user_progress SET streak = $2, last_check_in = $3 WHERE user_id = $1`,
				userID, streak, reward.Day(today),
			)
			if err != nil {
				return fmt.Errorf("update streak: %w", err)
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, false, err
	}

	return streak, changed, nil
}

// GetUserProgress возвращает прогресс пользователя. Для пользователя без
// строки прогресса возвращается нулевой прогресс: строка создаётся лениво
// первой мутацией.
func (r *PostgresRepository) GetUserProgress(ctx context.Context, userID int64) (*model.UserProgress, error) {
	p := &model.UserProgress{UserID: userID}

	err := r.pool.QueryRow(ctx,
		`SELECT xp, streak, last_check_in FROM user_progress WHERE user_id = $1`,
		userID,
	).Scan(&p.XP, &p.Streak, &p.LastCheckIn)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	p.Level = reward.LevelFromXP(p.XP)
	return p, nil
}

// GetWallet возвращает кошелёк пользователя. Отсутствующая строка означает
// пустой кошелёк.
func (r *PostgresRepository) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	w := &model.Wallet{UserID: userID}

	err := r.pool.QueryRow(ctx,
		`SELECT balance, total_earned, last_updated FROM wallets WHERE user_id = $1`,
		userID,
	).Scan(&w.Balance, &w.TotalEarned, &w.LastUpdated)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	return w, nil
}

// GetTransactionsByUser возвращает журнал операций пользователя, новые сверху.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reference, user_id, amount, type, description, status, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			txType string
			status string
		)
		if err := rows.Scan(&t.ID, &t.Reference, &t.UserID, &t.Amount, &txType, &t.Description, &status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = model.TransactionType(txType)
		t.Status = model.TransactionStatus(status)
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetDailyCompletions возвращает дневной набор завершённых активностей —
// отдельное от записей прохождения состояние, используемое только ротацией.
func (r *PostgresRepository) GetDailyCompletions(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT activity_id FROM daily_completions WHERE user_id = $1 ORDER BY activity_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select daily completions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan daily completion: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// ResetDailyCompletions очищает дневной набор завершённых активностей
// пользователя. Записи прохождения при этом не трогаются.
func (r *PostgresRepository) ResetDailyCompletions(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM daily_completions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("reset daily completions: %w", err)
	}
	return nil
}
