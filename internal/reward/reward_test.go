package reward

import (
	"testing"
	"time"
)

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{1, 1},
		{99, 1},
		{100, 2},
		{199, 2},
		{200, 3},
		{1000, 11},
	}

	for _, tt := range tests {
		if got := LevelFromXP(tt.xp); got != tt.want {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevelFromXP_Monotonic(t *testing.T) {
	prev := LevelFromXP(0)
	for xp := int64(1); xp <= 2000; xp++ {
		cur := LevelFromXP(xp)
		if cur < prev {
			t.Fatalf("LevelFromXP not monotonic: level(%d)=%d < level(%d)=%d", xp, cur, xp-1, prev)
		}
		prev = cur
	}
}

func TestLevelUpBonus(t *testing.T) {
	tests := []struct {
		oldLevel int
		newLevel int
		want     int64
	}{
		{1, 1, 0},
		{1, 2, 50},
		{1, 3, 100},
		{5, 4, 0},
	}

	for _, tt := range tests {
		if got := LevelUpBonus(tt.oldLevel, tt.newLevel); got != tt.want {
			t.Errorf("LevelUpBonus(%d, %d) = %d, want %d", tt.oldLevel, tt.newLevel, got, tt.want)
		}
	}
}

func TestStreakBonus(t *testing.T) {
	tests := []struct {
		coins  int64
		streak int
		want   int64
	}{
		{100, 0, 0},
		{100, 2, 0},
		{100, 3, 25},
		{100, 5, 25},
		{100, 6, 50},
		{100, 9, 75},
		{100, 30, 75},
		{0, 9, 0},
	}

	for _, tt := range tests {
		if got := StreakBonus(tt.coins, tt.streak); got != tt.want {
			t.Errorf("StreakBonus(%d, %d) = %d, want %d", tt.coins, tt.streak, got, tt.want)
		}
	}
}

func TestSettlementCoins(t *testing.T) {
	tests := []struct {
		name     string
		base     int64
		streak   int
		oldLevel int
		newLevel int
		want     int64
	}{
		{"base only", 10, 0, 1, 1, 10},
		{"level up adds 50", 10, 0, 1, 2, 60},
		{"two levels add 100", 10, 0, 1, 3, 110},
		{"streak tier one", 100, 3, 1, 1, 125},
		{"streak tier two", 100, 6, 1, 1, 150},
		{"streak tier cap", 100, 30, 1, 1, 175},
		{"streak and level up", 100, 9, 1, 2, 225},
		{"short streak has no bonus", 100, 2, 1, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettlementCoins(tt.base, tt.streak, tt.oldLevel, tt.newLevel)
			if got != tt.want {
				t.Errorf("SettlementCoins(%d, %d, %d, %d) = %d, want %d",
					tt.base, tt.streak, tt.oldLevel, tt.newLevel, got, tt.want)
			}
		})
	}
}

func TestNextStreak(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		lastCheckIn *time.Time
		streak      int
		today       time.Time
		wantStreak  int
		wantChanged bool
	}{
		{
			name:        "first check-in",
			lastCheckIn: nil,
			streak:      0,
			today:       day,
			wantStreak:  1,
			wantChanged: true,
		},
		{
			name:        "same day is a no-op",
			lastCheckIn: &day,
			streak:      4,
			today:       day.Add(10 * time.Hour),
			wantStreak:  4,
			wantChanged: false,
		},
		{
			name:        "next day extends streak",
			lastCheckIn: &day,
			streak:      4,
			today:       day.Add(24 * time.Hour),
			wantStreak:  5,
			wantChanged: true,
		},
		{
			name:        "missed day resets streak",
			lastCheckIn: &day,
			streak:      4,
			today:       day.Add(48 * time.Hour),
			wantStreak:  1,
			wantChanged: true,
		},
		{
			name:        "long gap resets streak",
			lastCheckIn: &day,
			streak:      9,
			today:       day.Add(30 * 24 * time.Hour),
			wantStreak:  1,
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streak, changed := NextStreak(tt.lastCheckIn, tt.streak, tt.today)
			if streak != tt.wantStreak {
				t.Errorf("streak = %d, want %d", streak, tt.wantStreak)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestLevelUpScenario(t *testing.T) {
	// Пользователь с 90 XP завершает активность на 20 XP: уровень 1 -> 2.
	oldXP := int64(90)
	award := int64(20)

	oldLevel := LevelFromXP(oldXP)
	newLevel := LevelFromXP(oldXP + award)

	if oldLevel != 1 || newLevel != 2 {
		t.Fatalf("levels = %d -> %d, want 1 -> 2", oldLevel, newLevel)
	}
	if bonus := LevelUpBonus(oldLevel, newLevel); bonus != 50 {
		t.Fatalf("LevelUpBonus = %d, want 50", bonus)
	}

	// Итоговое начисление: награда активности плюс бонус за уровень.
	if coins := SettlementCoins(10, 0, oldLevel, newLevel); coins != 60 {
		t.Fatalf("SettlementCoins = %d, want 60", coins)
	}
}
