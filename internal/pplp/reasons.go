// Package pplp — reasons.go содержит коды причин, которые объясняют
// пользователю и аудиту, почему счёт или доля получились именно такими.
package pplp

// ReasonCode — машинный код причины.
type ReasonCode string

const (
	ReasonUnknownActionType   ReasonCode = "UNKNOWN_ACTION_TYPE"
	ReasonUnknownContentType  ReasonCode = "UNKNOWN_CONTENT_TYPE"
	ReasonUnratedContent      ReasonCode = "UNRATED_CONTENT"
	ReasonReputationClamped   ReasonCode = "REPUTATION_CLAMPED"
	ReasonConsistencyBonus    ReasonCode = "CONSISTENCY_BONUS"
	ReasonSequenceBonus       ReasonCode = "SEQUENCE_BONUS"
	ReasonIntegrityPenalty    ReasonCode = "INTEGRITY_PENALTY"
	ReasonHardViolation       ReasonCode = "HARD_VIOLATION"
	ReasonBelowMinThreshold   ReasonCode = "BELOW_MIN_THRESHOLD"
	ReasonAntiWhaleCapped     ReasonCode = "ANTI_WHALE_CAPPED"
	ReasonExcessRedistributed ReasonCode = "EXCESS_REDISTRIBUTED"
)

var reasonLabels = map[ReasonCode]string{
	ReasonUnknownActionType:   "Неизвестный тип действия — не засчитан",
	ReasonUnknownContentType:  "Неизвестный тип контента — без контентного бонуса",
	ReasonUnratedContent:      "Контент ещё не оценён сообществом",
	ReasonReputationClamped:   "Вес репутации ограничен допустимым диапазоном",
	ReasonConsistencyBonus:    "Бонус за регулярную активность",
	ReasonSequenceBonus:       "Бонус за прохождение цепочки действий",
	ReasonIntegrityPenalty:    "Снижение за сигналы злоупотреблений",
	ReasonHardViolation:       "Серьёзное нарушение — максимальное снижение",
	ReasonBelowMinThreshold:   "Light Score ниже порога минта",
	ReasonAntiWhaleCapped:     "Доля ограничена лимитом anti-whale",
	ReasonExcessRedistributed: "Получена доля перераспределённого излишка",
}

// Label возвращает человекочитаемое описание причины.
func (r ReasonCode) Label() string {
	if label, ok := reasonLabels[r]; ok {
		return label
	}
	return string(r)
}

// reasonSet собирает причины без повторов, сохраняя порядок появления.
type reasonSet struct {
	codes []ReasonCode
	seen  map[ReasonCode]struct{}
}

func (s *reasonSet) add(code ReasonCode) {
	if s.seen == nil {
		s.seen = make(map[ReasonCode]struct{})
	}
	if _, ok := s.seen[code]; ok {
		return
	}
	s.seen[code] = struct{}{}
	s.codes = append(s.codes, code)
}

func (s *reasonSet) list() []ReasonCode {
	return s.codes
}
