package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
// Пакеты ядра (pkg/dungeon) его не трогают: они получают *logrus.Entry снаружи.
var Log = logrus.New()

// Init инициализирует глобальный логгер из переменных окружения.
// Эта функция должна быть вызвана один раз при старте приложения в main.go.
func Init() {
	Log = logrus.New()
	Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	// Пишем логи в стандартный вывод.
	Log.SetOutput(os.Stdout)
}

// Configure применяет уровень и формат (обычно из dungeon.yaml).
// Переменные окружения LOG_LEVEL / LOG_FORMAT имеют приоритет над файлом.
func Configure(level, format string) {
	if env, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = env
	}
	if env, ok := os.LookupEnv("LOG_FORMAT"); ok {
		format = env
	}

	// 1. Уровень логирования. По умолчанию - "info", для отладки - "debug".
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)

	// 2. Форматтер: "json" - для продакшена, "text" - для разработки.
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}
}

// Component возвращает логгер с полем component (room, corridor, dungeon ...)
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// Discard - логгер "в никуда" для тестов и фоновых утилит
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
