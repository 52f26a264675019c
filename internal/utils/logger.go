package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// serviceNameHook prefixes every entry with the service name so that logs
// from multiple tenants'/services' containers can be grepped apart.
type serviceNameHook struct {
	name string
}

func (h *serviceNameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceNameHook) Fire(entry *logrus.Entry) error {
	entry.Message = "[" + h.name + "] " + entry.Message
	return nil
}

// InitLogger configures the shared logger. The level comes from LOG_LEVEL
// and defaults to info.
func InitLogger(serviceName string) {
	Logger.SetOutput(os.Stdout)

	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		Logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to INFO", levelStr)
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)

	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	Logger.AddHook(&serviceNameHook{name: serviceName})
}
