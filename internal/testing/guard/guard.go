// Package guard switches the process into test mode when imported for side effects.
package guard

import (
	"os"

	"github.com/odyssey-erp/quadro/internal/app"
)

func init() {
	if os.Getenv(app.TestModeEnv) == "" {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
}
