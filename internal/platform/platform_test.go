package platform

import "testing"

func TestAppName(t *testing.T) {
	if got := (Options{}).appName(); got != DefaultAppName {
		t.Fatalf("default app name = %q", got)
	}
	if got := (Options{AppName: "  edits "}).appName(); got != "edits" {
		t.Fatalf("app name = %q", got)
	}
}
