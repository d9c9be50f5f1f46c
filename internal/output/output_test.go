package output

import (
	"testing"
	"time"

	"github.com/marcus/possync/internal/models"
)

func TestFormatDirection(t *testing.T) {
	tests := []struct {
		dir  models.SyncDirection
		want string
	}{
		{models.DirectionLocalToRemote, "->"},
		{models.DirectionRemoteToLocal, "<-"},
		{models.DirectionBidirectional, "<->"},
		{"weird", "weird"},
	}
	for _, tt := range tests {
		if got := FormatDirection(tt.dir); got != tt.want {
			t.Errorf("FormatDirection(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	if got := Truncate("a much longer string", 10); got != "a much ..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Errorf("Truncate at limit = %q", got)
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "-" {
		t.Errorf("zero time = %q, want -", got)
	}
	old := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	if got := FormatTime(old); got != "2024-03-01 09:30" {
		t.Errorf("old time = %q", got)
	}
}

func TestFormatStatus_Unknown(t *testing.T) {
	if got := FormatStatus(models.SyncStatus("odd")); got != "odd" {
		t.Errorf("unknown status = %q", got)
	}
}
