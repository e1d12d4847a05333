// Package reward содержит чистые функции расчёта уровней, серий и бонусов.
package reward

import "time"

const (
	xpPerLevel      = 100
	coinsPerLevelUp = 50
	streakBonusStep = 3
	streakBonusCap  = 3
	streakBonusPct  = 25
)

// LevelFromXP возвращает уровень пользователя для накопленного опыта.
// Уровень всегда вычисляется заново и нигде не хранится.
func LevelFromXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/xpPerLevel) + 1
}

// LevelUpBonus возвращает бонус в монетах за повышение уровня.
// Бонус начисляется за каждый пройденный уровень.
func LevelUpBonus(oldLevel, newLevel int) int64 {
	if newLevel <= oldLevel {
		return 0
	}
	return int64(newLevel-oldLevel) * coinsPerLevelUp
}

// StreakBonus возвращает добавку к базовой награде монетами за текущую серию.
// Множитель растёт на 25% за каждые три дня серии и ограничен +75%.
func StreakBonus(coins int64, streak int) int64 {
	if coins <= 0 || streak < streakBonusStep {
		return 0
	}
	tier := streak / streakBonusStep
	if tier > streakBonusCap {
		tier = streakBonusCap
	}
	return coins * int64(tier) * streakBonusPct / 100
}

// SettlementCoins возвращает итоговое начисление монет за завершённую
// активность: базовая награда, добавка за серию и бонус за повышение уровня.
// Множитель серии применяется только к базовой награде.
func SettlementCoins(base int64, streak, oldLevel, newLevel int) int64 {
	return base + StreakBonus(base, streak) + LevelUpBonus(oldLevel, newLevel)
}

// Day обрезает время до границы суток в UTC. Все сравнения дат
// в расчёте серий выполняются с этой гранулярностью.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// NextStreak вычисляет новое значение серии для отметки в день today.
// Возвращает серию и признак того, что состояние изменилось: повторная
// отметка в тот же день ничего не меняет, отметка на следующий день
// продлевает серию, любой пропуск начинает её заново.
func NextStreak(lastCheckIn *time.Time, streak int, today time.Time) (int, bool) {
	day := Day(today)

	if lastCheckIn == nil {
		return 1, true
	}

	last := Day(*lastCheckIn)
	switch {
	case day.Equal(last):
		return streak, false
	case day.Equal(last.Add(24 * time.Hour)):
		return streak + 1, true
	default:
		return 1, true
	}
}
