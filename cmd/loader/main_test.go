package main

import (
	"testing"

	_ "github.com/odyssey-erp/quadro/internal/testing/guard"

	"github.com/odyssey-erp/quadro/internal/app"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	if !app.InTestMode() {
		t.Fatal("expected test mode to be active")
	}
	main()
}
