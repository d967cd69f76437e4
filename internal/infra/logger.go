// README: Zap logger construction.
package infra

import (
	"go.uber.org/zap"
)

// NewLogger returns a console logger for "development" and a JSON
// production logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
