package app

import (
	"os"
	"sync"
)

// TestModeEnv, when set to "1", makes the binaries return before touching the network,
// the store or the queue, so their packages can be exercised from tests.
const TestModeEnv = "QUADRO_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	return inTestMode()
}
