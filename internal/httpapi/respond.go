package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/pplp"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Не удалось записать ответ")
	}
}

// writeError переводит ошибки сервисов в HTTP-статусы.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Ошибка обработки запроса")
		msg = "внутренняя ошибка"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrEpochNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, pplp.ErrUnknownVersion):
		return http.StatusNotFound
	case errors.Is(err, common.ErrEpochClosed),
		errors.Is(err, common.ErrEpochNotFinished),
		errors.Is(err, common.ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, common.ErrInvalidEvent),
		errors.Is(err, common.ErrInvalidSignals),
		errors.Is(err, common.ErrInvalidRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
