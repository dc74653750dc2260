package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/features/actions"
	"funplay.vn/light-engine/internal/pplp"
)

// historyDefaultDays — глубина истории по умолчанию.
const historyDefaultDays = 30

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rulesResponse struct {
	ActiveVersion string                   `json:"active_version"`
	Fingerprint   string                   `json:"fingerprint"`
	Versions      []string                 `json:"versions"`
	Rules         *pplp.ScoringRulesConfig `json:"rules"`
}

func (s *Server) getRules(w http.ResponseWriter, r *http.Request) {
	s.writeRules(w, s.cfg.Active.RuleVersion)
}

func (s *Server) getRuleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeRules(w, chi.URLParam(r, "version"))
}

func (s *Server) writeRules(w http.ResponseWriter, version string) {
	cfg, err := s.cfg.Registry.Get(version)
	if err != nil {
		writeError(w, err)
		return
	}
	fp, err := s.cfg.Registry.FingerprintOf(version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rulesResponse{
		ActiveVersion: s.cfg.Active.RuleVersion,
		Fingerprint:   fp,
		Versions:      s.cfg.Registry.Versions(),
		Rules:         cfg,
	})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.cfg.Scores.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	today := common.PlatformDate(s.Now(), s.cfg.Loc)
	from, to, err := s.dateRange(r, today.AddDate(0, 0, -(historyDefaultDays-1)), today)
	if err != nil {
		writeError(w, err)
		return
	}
	days, err := s.cfg.Scores.History(r.Context(), chi.URLParam(r, "userID"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if days == nil {
		days = []pplp.DailyLightScoreResult{}
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) getCurrentEpoch(w http.ResponseWriter, r *http.Request) {
	current := s.cfg.Epochs.Current(s.Now())
	stored, err := s.cfg.Epochs.Get(r.Context(), current.ID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stored)
	case errors.Is(err, common.ErrEpochNotFound):
		writeJSON(w, http.StatusOK, current)
	default:
		writeError(w, err)
	}
}

func (s *Server) getEpoch(w http.ResponseWriter, r *http.Request) {
	e, err := s.cfg.Epochs.Get(r.Context(), chi.URLParam(r, "epochID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type allocationsResponse struct {
	EpochID     string                `json:"epoch_id"`
	FinalUnits  int64                 `json:"final_units"`
	FinalAmount float64               `json:"final_amount"`
	Allocations []pplp.MintAllocation `json:"allocations"`
}

func (s *Server) getAllocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "epochID")
	allocs, err := s.cfg.Epochs.Allocations(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := allocationsResponse{EpochID: id, Allocations: allocs}
	for _, a := range allocs {
		resp.FinalUnits += a.FinalUnits
	}
	resp.FinalAmount = pplp.UnitsToTokens(resp.FinalUnits)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) simulateLy(w http.ResponseWriter, r *http.Request) {
	s.simulate(w, r, pplp.SimulateUserLy)
}

func (s *Server) simulateWhale(w http.ResponseWriter, r *http.Request) {
	s.simulate(w, r, pplp.SimulateWhaleEpoch)
}

// simulate прогоняет сценарий на активной версии правил или на ?version=.
// Полный список распределения отдаётся только с ?full=1.
func (s *Server) simulate(w http.ResponseWriter, r *http.Request, run func(*pplp.ScoringRulesConfig) (pplp.SimulationResult, error)) {
	cfg := s.cfg.Active
	if v := r.URL.Query().Get("version"); v != "" {
		var err error
		if cfg, err = s.cfg.Registry.Get(v); err != nil {
			writeError(w, err)
			return
		}
	}
	res, err := run(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("full") != "1" {
		res.Settlement.Allocations = nil
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var ev pplp.ActionEvent
	if err := decodeBody(w, r, &ev); err != nil {
		writeError(w, fmt.Errorf("%w: %v", common.ErrInvalidEvent, err))
		return
	}
	if err := s.cfg.Actions.Record(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_id": ev.EventID})
}

func (s *Server) getSignals(w http.ResponseWriter, r *http.Request) {
	sig, err := s.cfg.Actions.Signals(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) putSignals(w http.ResponseWriter, r *http.Request) {
	var sig actions.Signals
	if err := decodeBody(w, r, &sig); err != nil {
		writeError(w, fmt.Errorf("%w: %v", common.ErrInvalidSignals, err))
		return
	}
	sig.UserID = chi.URLParam(r, "userID")
	if err := s.cfg.Actions.UpdateSignals(r.Context(), &sig); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) recalculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, fmt.Errorf("%w: нужны from и to", common.ErrInvalidRange))
		return
	}
	from, to, err := s.dateRange(r, time.Time{}, time.Time{})
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := s.cfg.Scores.Recalculate(r.Context(), chi.URLParam(r, "userID"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) closeEpoch(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Epochs.Close(r.Context(), chi.URLParam(r, "epochID"), s.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// dateRange читает ?from=&to= (YYYY-MM-DD) с подстановкой значений по умолчанию.
func (s *Server) dateRange(r *http.Request, defFrom, defTo time.Time) (time.Time, time.Time, error) {
	from, to := defFrom, defTo
	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = common.ParseDate(v, s.cfg.Loc); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = common.ParseDate(v, s.cfg.Loc); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from позже to", common.ErrInvalidRange)
	}
	return from, to, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
