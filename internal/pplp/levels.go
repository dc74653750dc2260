// Package pplp — levels.go определяет уровни пользователя по накопленному Light Score.
package pplp

// Level — название уровня.
type Level string

const (
	LevelSeed      Level = "seed"
	LevelSprout    Level = "sprout"
	LevelBuilder   Level = "builder"
	LevelGuardian  Level = "guardian"
	LevelArchitect Level = "architect"
)

var levelLabels = map[Level]string{
	LevelSeed:      "Семя",
	LevelSprout:    "Росток",
	LevelBuilder:   "Строитель",
	LevelGuardian:  "Хранитель",
	LevelArchitect: "Архитектор",
}

// Label возвращает название уровня для отображения.
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

// LevelForScore возвращает самый высокий уровень, порог которого <= cumulativeScore.
// Счёт ниже минимального порога (или отрицательный) — самый нижний уровень, не ошибка.
func LevelForScore(cumulativeScore float64, cfg *ScoringRulesConfig) Level {
	if cfg == nil || len(cfg.Levels) == 0 {
		return LevelSeed
	}
	return cfg.Levels[levelIndex(cumulativeScore, cfg.Levels)].Name
}

// LevelOrdinal возвращает порядковый номер уровня (0 — нижний) или -1, если уровня нет.
func LevelOrdinal(level Level, cfg *ScoringRulesConfig) int {
	if cfg == nil {
		return -1
	}
	for i, l := range cfg.Levels {
		if l.Name == level {
			return i
		}
	}
	return -1
}

// LevelProgress — текущий уровень и сколько осталось до следующего.
type LevelProgress struct {
	Level     Level   `json:"level"`
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	NextLevel Level   `json:"next_level,omitempty"`
	// Remaining — сколько Light Score не хватает до NextLevel; 0 на последнем уровне.
	Remaining float64 `json:"remaining"`
}

// ProgressForScore считает прогресс по уровням.
func ProgressForScore(cumulativeScore float64, cfg *ScoringRulesConfig) LevelProgress {
	level := LevelForScore(cumulativeScore, cfg)
	progress := LevelProgress{Level: level, Label: level.Label(), Score: cumulativeScore}
	if cfg == nil || len(cfg.Levels) == 0 {
		return progress
	}
	idx := levelIndex(cumulativeScore, cfg.Levels)
	if idx+1 < len(cfg.Levels) {
		next := cfg.Levels[idx+1]
		progress.NextLevel = next.Name
		progress.Remaining = next.Threshold - clamp(cumulativeScore, 0, next.Threshold)
	}
	return progress
}

// levelIndex — проход по порогам сверху вниз.
func levelIndex(score float64, levels []LevelThreshold) int {
	for i := len(levels) - 1; i >= 0; i-- {
		if score >= levels[i].Threshold {
			return i
		}
	}
	return 0
}
