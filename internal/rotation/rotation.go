// Package rotation реализует детерминированный подбор дневного набора активностей.
package rotation

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"
)

// Size — число активностей в дневном наборе.
const Size = 10

// DayKeyLayout — формат ключа календарного дня.
const DayKeyLayout = "2006-01-02"

// DayKey возвращает ключ календарного дня в UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// ParseDayKey разбирает строку в формате YYYY-MM-DD в начало дня в UTC.
func ParseDayKey(s string) (time.Time, error) {
	if len(s) != len(DayKeyLayout) {
		return time.Time{}, fmt.Errorf("day key %q: want format %s", s, DayKeyLayout)
	}
	day, err := time.Parse(DayKeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day key %q: %w", s, err)
	}
	return day, nil
}

// Select подбирает дневной набор активностей пользователя: до Size
// идентификаторов из каталога за вычетом уже завершённых. Результат —
// чистая функция от (userID, dayKey, каталог, завершённые): перемешивание
// выполняется генератором, засеянным хешем пары пользователь-день, поэтому
// повторный вызов в тот же день возвращает тот же набор и без кэша.
func Select(userID int64, dayKey string, catalogIDs, completedIDs []int64) []int64 {
	completed := make(map[int64]struct{}, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = struct{}{}
	}

	candidates := make([]int64, 0, len(catalogIDs))
	for _, id := range catalogIDs {
		if _, ok := completed[id]; !ok {
			candidates = append(candidates, id)
		}
	}

	// Порядок кандидатов фиксируется до перемешивания, иначе результат
	// зависел бы от порядка выдачи каталога.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	rng := rand.New(rand.NewSource(seed(userID, dayKey)))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	if len(candidates) > Size {
		candidates = candidates[:Size]
	}

	return candidates
}

func seed(userID int64, dayKey string) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", userID, dayKey)
	return int64(h.Sum64())
}
