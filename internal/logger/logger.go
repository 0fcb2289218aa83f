package logger

import "go.uber.org/zap"

// New builds the process-wide logger. Production config writes JSON to
// stdout; GIN_MODE is left to gin itself.
func New() (*zap.Logger, error) {
	return zap.NewProduction()
}
