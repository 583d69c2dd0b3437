package helpers

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Development gets debug level and
// readable text; everything else gets JSON at info level. A nil out means stdout.
func NewLogger(appName, env string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := logrus.New()
	logger.SetOutput(out)
	switch env {
	case "development":
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: out != os.Stdout})
	default:
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Info("logger initialized")
	return logger
}

// entry attaches fields and err to a new entry; nil logger yields nil.
func entry(logger *logrus.Logger, err error, fields logrus.Fields) *logrus.Entry {
	if logger == nil {
		return nil
	}
	e := logger.WithFields(fields)
	if err != nil {
		e = e.WithField("error", err.Error())
	}
	return e
}

// LogError logs msg at error level. All Log* helpers accept a nil logger.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	if e := entry(logger, err, fields); e != nil {
		e.Error(msg)
	}
}

func LogWarn(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	if e := entry(logger, err, fields); e != nil {
		e.Warn(msg)
	}
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	if e := entry(logger, nil, fields); e != nil {
		e.Info(msg)
	}
}
