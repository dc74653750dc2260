// Package pplp — errors.go перечисляет ошибки движка.
// Движок почти ничего не отвергает: числа вне диапазона зажимаются,
// неизвестные типы действий дают ноль. Ошибка — только битая конфигурация.
package pplp

import "errors"

var (
	// ErrNilConfig — конфигурация не передана (ошибка загрузки/деплоя).
	ErrNilConfig = errors.New("pplp: конфигурация правил не передана")
	// ErrInvalidConfig — конфигурация не прошла проверку.
	ErrInvalidConfig = errors.New("pplp: некорректная конфигурация правил")
	// ErrVersionConflict — под той же версией зарегистрированы другие коэффициенты.
	ErrVersionConflict = errors.New("pplp: версия правил уже занята другой конфигурацией")
	// ErrUnknownVersion — версия правил не зарегистрирована.
	ErrUnknownVersion = errors.New("pplp: неизвестная версия правил")
)
