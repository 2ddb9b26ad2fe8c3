package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerNilInstallsNoOp(t *testing.T) {
	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("hello")
	if !called {
		t.Fatal("expected custom logger to be called")
	}

	SetLogger(nil)
	Logf("should not panic")
}

func TestDebugfRespectsVerbosity(t *testing.T) {
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer SetLogger(nil)

	SetVerbose(false)
	Debugf("quiet %d", 1)
	if len(lines) != 0 {
		t.Fatalf("expected no debug output when verbosity off, got %v", lines)
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debugf("loud %d", 2)
	if len(lines) != 1 || lines[0] != "loud 2" {
		t.Fatalf("expected one debug line, got %v", lines)
	}
}
