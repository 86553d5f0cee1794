package observability

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the structured logger used across the service.
// Unknown levels fall back to info. JSON output is intended for
// production; the text formatter is friendlier in development.
func NewLogger(level string, jsonFormat bool, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stdout
	}

	log := logrus.New()
	log.SetOutput(output)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if jsonFormat {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
