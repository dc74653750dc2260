// Package pplp — mint.go распределяет пул эпохи между пользователями
// пропорционально Light Score с ограничением anti-whale.
//
// Расчёт идёт в целых минимальных единицах (MintUnitsPerToken на токен)
// и точных дробях big.Rat: доли округляются вниз, поэтому сумма выплат
// никогда не превышает пул, а порядок входных данных не влияет на результат.
package pplp

import (
	"math"
	"math/big"
	"sort"
	"strconv"
)

// MintUnitsPerToken — минимальных единиц в одном FUN.
const MintUnitsPerToken = 1_000_000

var unitsPerToken = big.NewInt(MintUnitsPerToken)

// CalculateMintAllocations распределяет poolAmount между пользователями.
//
// Алгоритм:
//  1. Объединяем дубли UserID и сортируем по UserID
//  2. Пользователи ниже min_light_threshold остаются в списке с нулём
//  3. Доля = pool × score / сумма_квалифицированных (округление вниз)
//  4. Доля ограничивается pool × anti_whale_cap
//  5. Излишек сверх лимита остаётся несминченным, либо, если включён
//     redistribute_capped_excess, перераспределяется между теми, кто ниже лимита
//
// Пустой вход — пустой результат.
func CalculateMintAllocations(scores []UserScore, poolAmount float64, cfg *ScoringRulesConfig) []MintAllocation {
	if cfg == nil || len(scores) == 0 {
		return []MintAllocation{}
	}

	users, weights := mergeScores(scores)
	poolUnits := tokensToUnits(poolAmount)
	capUnits := capUnitsFor(poolUnits, cfg)

	allocs := make([]MintAllocation, len(users))
	reasons := make([]reasonSet, len(users))
	var qualified []int
	for i, u := range users {
		allocs[i] = MintAllocation{UserID: u.UserID, LightScore: u.LightScore}
		if u.LightScore <= 0 || u.LightScore < cfg.Mint.MinLightThreshold {
			reasons[i].add(ReasonBelowMinThreshold)
			continue
		}
		allocs[i].Qualified = true
		qualified = append(qualified, i)
	}

	final := make([]*big.Int, len(users))
	for i := range final {
		final[i] = big.NewInt(0)
	}

	if len(qualified) > 0 && poolUnits.Sign() > 0 {
		total := new(big.Rat)
		for _, i := range qualified {
			total.Add(total, weights[i])
		}
		for _, i := range qualified {
			raw := proportionalShare(poolUnits, weights[i], total)
			allocs[i].RawUnits = clampInt64(raw)
			if raw.Cmp(capUnits) > 0 {
				final[i].Set(capUnits)
				allocs[i].Capped = true
				reasons[i].add(ReasonAntiWhaleCapped)
			} else {
				final[i].Set(raw)
			}
		}
		if cfg.Mint.RedistributeCappedExcess {
			redistributeExcess(poolUnits, capUnits, weights, qualified, allocs, final, reasons)
		}
	}

	for i := range allocs {
		allocs[i].FinalUnits = clampInt64(final[i])
		allocs[i].RawAmount = UnitsToTokens(allocs[i].RawUnits)
		allocs[i].FinalAmount = UnitsToTokens(allocs[i].FinalUnits)
		allocs[i].Reasons = reasons[i].list()
	}
	return allocs
}

// redistributeExcess раздаёт излишек ограниченных пользователей остальным
// пропорционально счёту, повторяя, пока кто-то ещё упирается в лимит.
// Каждый проход фиксирует хотя бы одного пользователя на лимите, так что
// проходов не больше числа квалифицированных.
func redistributeExcess(poolUnits, capUnits *big.Int, weights []*big.Rat, qualified []int, allocs []MintAllocation, final []*big.Int, reasons []reasonSet) {
	for {
		remaining := new(big.Int).Set(poolUnits)
		var open []int
		openTotal := new(big.Rat)
		for _, i := range qualified {
			if allocs[i].Capped {
				remaining.Sub(remaining, final[i])
				continue
			}
			open = append(open, i)
			openTotal.Add(openTotal, weights[i])
		}
		if len(open) == 0 || openTotal.Sign() == 0 || remaining.Sign() <= 0 {
			break
		}

		newlyCapped := false
		for _, i := range open {
			share := proportionalShare(remaining, weights[i], openTotal)
			if share.Cmp(capUnits) > 0 {
				final[i].Set(capUnits)
				allocs[i].Capped = true
				reasons[i].add(ReasonAntiWhaleCapped)
				newlyCapped = true
				continue
			}
			final[i].Set(share)
		}
		if !newlyCapped {
			break
		}
	}

	for _, i := range qualified {
		if !allocs[i].Capped && final[i].Cmp(big.NewInt(allocs[i].RawUnits)) > 0 {
			reasons[i].add(ReasonExcessRedistributed)
		}
	}
}

// FinalizeEpoch суммирует дневные счёты эпохи и распределяет её пул.
// Результат нужно сохранить атомарно: один набор выплат на эпоху.
func FinalizeEpoch(epoch Epoch, results []DailyLightScoreResult, cfg *ScoringRulesConfig) (EpochSettlement, error) {
	if cfg == nil {
		return EpochSettlement{}, ErrNilConfig
	}
	scores := AccumulateEpoch(epoch, results)
	allocs := CalculateMintAllocations(scores, epoch.PoolAmount, cfg)

	settlement := EpochSettlement{
		EpochID:     epoch.ID,
		RuleVersion: cfg.RuleVersion,
		PoolUnits:   clampInt64(tokensToUnits(epoch.PoolAmount)),
		Allocations: allocs,
	}
	total := new(big.Rat)
	for _, a := range allocs {
		if a.LightScore > 0 {
			total.Add(total, new(big.Rat).SetFloat64(a.LightScore))
		}
		if a.Qualified {
			settlement.QualifiedUsers++
		}
		if a.Capped {
			settlement.CappedUsers++
			if a.RawUnits > a.FinalUnits {
				settlement.CappedExcessUnits += a.RawUnits - a.FinalUnits
			}
		}
		settlement.MintedUnits += a.FinalUnits
	}
	settlement.TotalLight, _ = total.Float64()
	settlement.UnmintedUnits = settlement.PoolUnits - settlement.MintedUnits
	return settlement, nil
}

// AntiWhaleCapUnits — максимальная доля одного пользователя в пуле, в минимальных единицах.
func AntiWhaleCapUnits(poolAmount float64, cfg *ScoringRulesConfig) int64 {
	if cfg == nil {
		return 0
	}
	return clampInt64(capUnitsFor(tokensToUnits(poolAmount), cfg))
}

func capUnitsFor(poolUnits *big.Int, cfg *ScoringRulesConfig) *big.Int {
	limit := new(big.Rat).SetInt(poolUnits)
	limit.Mul(limit, decimalRat(cfg.Mint.AntiWhaleCap))
	return floorRat(limit)
}

// UnitsToTokens переводит минимальные единицы в токены для отображения.
func UnitsToTokens(units int64) float64 {
	return float64(units) / MintUnitsPerToken
}

// TokensToUnits переводит сумму в токенах в минимальные единицы (вниз).
func TokensToUnits(amount float64) int64 {
	return clampInt64(tokensToUnits(amount))
}

// mergeScores объединяет дубли, зажимает отрицательные и нечисловые счёты в 0
// и возвращает пользователей по возрастанию UserID вместе с точными весами.
func mergeScores(scores []UserScore) ([]UserScore, []*big.Rat) {
	merged := make(map[string]*big.Rat, len(scores))
	for _, s := range scores {
		acc, ok := merged[s.UserID]
		if !ok {
			acc = new(big.Rat)
			merged[s.UserID] = acc
		}
		if validNumber(s.LightScore) && s.LightScore > 0 {
			acc.Add(acc, new(big.Rat).SetFloat64(s.LightScore))
		}
	}
	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	users := make([]UserScore, len(ids))
	weights := make([]*big.Rat, len(ids))
	for i, id := range ids {
		f, _ := merged[id].Float64()
		users[i] = UserScore{UserID: id, LightScore: f}
		weights[i] = merged[id]
	}
	return users, weights
}

// proportionalShare = floor(pool × weight / total).
func proportionalShare(pool *big.Int, weight, total *big.Rat) *big.Int {
	if total.Sign() == 0 {
		return big.NewInt(0)
	}
	share := new(big.Rat).SetInt(pool)
	share.Mul(share, weight)
	share.Quo(share, total)
	return floorRat(share)
}

// floorRat округляет неотрицательную дробь вниз.
func floorRat(r *big.Rat) *big.Int {
	if r.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(r.Num(), r.Denom())
}

// decimalRat превращает float в дробь по его кратчайшей десятичной записи,
// чтобы 0.03 было ровно 3/100, а не ближайшим двоичным числом.
func decimalRat(v float64) *big.Rat {
	if !validNumber(v) || v <= 0 {
		return new(big.Rat)
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return new(big.Rat).SetFloat64(v)
	}
	return r
}

func tokensToUnits(amount float64) *big.Int {
	r := decimalRat(amount)
	r.Mul(r, new(big.Rat).SetInt(unitsPerToken))
	return floorRat(r)
}

func clampInt64(v *big.Int) int64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Int64()
}
