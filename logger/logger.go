// Package logger holds the process-wide structured logger.
package logger

import "go.uber.org/zap"

// Log is safe to use before Init; it discards everything until then.
var Log = zap.NewNop()

// Init replaces Log with a development logger when debug is set and a
// production logger otherwise.
func Init(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
