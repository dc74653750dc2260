// Package main — точка входа сервиса Light Score.
// Загружает конфигурацию, инициализирует приложение и запускает.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"funplay.vn/light-engine/internal/app"
	"funplay.vn/light-engine/internal/config"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	log.Info("=== Light Engine запускается ===")

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Уровень и файл логов из конфига
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}))
	}

	// Контекст отменяется по Ctrl+C или docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем приложение (БД, правила, сервисы, API)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	log.WithFields(log.Fields{
		"env":      cfg.AppEnv,
		"timezone": cfg.AppTimezone,
		"rules":    cfg.RulesVersion,
	}).Info("=== Light Engine готов к работе ===")

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("Приложение остановлено с ошибкой")
		return
	}

	log.Info("=== Light Engine остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
