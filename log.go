package ircd

import "github.com/sirupsen/logrus"

// newLogger builds the server's default logger: text output, fields
// attached per-entry rather than interpolated into the message string,
// matching the convention used across the example corpus's services.
func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
