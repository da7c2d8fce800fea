package mempool

import "github.com/sirupsen/logrus"

var log = logrus.New()

// SetLogger replaces the package logger. Pools created afterwards log
// through l; nil is ignored.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

// Logger returns the package logger.
func Logger() *logrus.Logger {
	return log
}
