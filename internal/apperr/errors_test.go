package apperr

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestTip_NotExist(t *testing.T) {
	_, err := os.Stat("/definitely/not/here")
	tip := Tip(fmt.Errorf("bundler: stat root: %w", err))
	if !strings.Contains(tip, "exists") {
		t.Errorf("tip = %q", tip)
	}
}

func TestTip_Permission(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}
	if tip := Tip(err); !strings.Contains(tip, "permissions") {
		t.Errorf("tip = %q", tip)
	}
}

func TestTip_Other(t *testing.T) {
	if tip := Tip(ErrMalformedTag); tip != "" {
		t.Errorf("expected no tip, got %q", tip)
	}
}
