package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read captured output: %v", err)
	}
	return buf.String()
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	out := captureStdout(t, func() {
		Init(Config{
			Service: "rapt",
			Version: "v0.0.1",
			Env:     EnvDev,
			Backend: BackendStd,
			Level:   slog.LevelDebug,
		})
		slog.Info("hello from rapt")
	})

	if strings.Contains(out, "{") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	if !strings.Contains(out, "hello from rapt") {
		t.Fatalf("message missing: %s", out)
	}
	if !strings.Contains(out, "service=rapt") {
		t.Fatalf("service attr missing: %s", out)
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	out := captureStdout(t, func() {
		Init(Config{
			Service: "rapt",
			Env:     EnvProd,
			Backend: BackendZap,
		})
		slog.Info("structured hello")
	})

	if !strings.Contains(out, `"structured hello"`) {
		t.Fatalf("message missing from JSON output: %s", out)
	}
	if !strings.Contains(out, `"service"`) {
		t.Fatalf("service attr missing: %s", out)
	}
}

func TestAttrsFromCtx_NoSpan(t *testing.T) {
	if attrs := AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("expected no attrs without a span, got %v", attrs)
	}
}

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	if env := DetectEnv(); env != EnvProd {
		t.Fatalf("expected prod, got %q", env)
	}
	t.Setenv("APP_ENV", "")
	if env := DetectEnv(); env != EnvDev {
		t.Fatalf("expected dev default, got %q", env)
	}
}
