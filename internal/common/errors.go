// Package common — errors.go определяет ошибки, которые используются
// во всех модулях сервиса. Они позволяют HTTP-слою и задачам различать
// типы проблем и отвечать понятными сообщениями.
package common

import "errors"

// Ошибки эпох
var (
	// ErrEpochNotFound — эпоха не найдена
	ErrEpochNotFound = errors.New("эпоха не найдена")
	// ErrEpochClosed — эпоха уже закрыта, повторный минт запрещён
	ErrEpochClosed = errors.New("эпоха уже закрыта")
	// ErrEpochNotFinished — эпоха ещё идёт, закрывать рано
	ErrEpochNotFinished = errors.New("эпоха ещё не закончилась")
)

// Ошибки событий
var (
	// ErrInvalidEvent — событие не прошло проверку (нет id, пользователя или типа)
	ErrInvalidEvent = errors.New("некорректное событие")
	// ErrInvalidSignals — сигналы риска вне допустимых значений
	ErrInvalidSignals = errors.New("некорректные сигналы пользователя")
	// ErrDuplicateEvent — событие с таким event_id уже сохранено
	ErrDuplicateEvent = errors.New("событие уже сохранено")
	// ErrUserNotFound — у пользователя нет ни одного счёта
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrInvalidRange — некорректный диапазон дат
	ErrInvalidRange = errors.New("некорректный диапазон дат")
)

// Ошибки админки
var (
	// ErrUnauthorized — токен администратора не передан или неверен
	ErrUnauthorized = errors.New("требуется токен администратора")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите")
)
