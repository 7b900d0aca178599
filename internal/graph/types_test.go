package graph

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestDownloadURL_LogValuer verifies the download URL is redacted when it
// reaches a log line.
func TestDownloadURL_LogValuer(t *testing.T) {
	t.Parallel()

	secretURL := DownloadURL("https://contoso-my.sharepoint.com/download.aspx?tempauth=secret-token-here")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("download started", "url", secretURL)

	output := buf.String()

	if !strings.Contains(output, "[REDACTED]") {
		t.Errorf("expected [REDACTED] in log output, got: %s", output)
	}

	if strings.Contains(output, "secret-token-here") {
		t.Errorf("log output contains secret URL token: %s", output)
	}
}

func TestItemPath_Zero(t *testing.T) {
	t.Parallel()

	var p ItemPath
	if !p.IsZero() || p.String() != "" {
		t.Errorf("zero ItemPath = %q, want empty", p.String())
	}

	if RootItemPath("a.kdbx").IsZero() {
		t.Error("RootItemPath should not be zero")
	}
}
