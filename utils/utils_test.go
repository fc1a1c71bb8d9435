package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	in := time.Date(2025, 6, 2, 3, 30, 0, 0, loc)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := StartOfDay(in); !got.Equal(want) {
		t.Fatalf("StartOfDay = %v, want %v", got, want)
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2025-06-01")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDay = %v", got)
	}
	if _, err := ParseDay("06/01/2025"); err == nil {
		t.Fatal("expected error for bad layout")
	}
}

func TestInitLogger(t *testing.T) {
	if lvl := InitLogger("warn").GetLevel(); lvl != logrus.WarnLevel {
		t.Fatalf("level = %v", lvl)
	}
	if lvl := InitLogger("loud").GetLevel(); lvl != logrus.DebugLevel {
		t.Fatalf("fallback level = %v", lvl)
	}

	entry := InitLogger("info").WithComponent("api")
	if entry.Data["component"] != "api" {
		t.Fatalf("fields = %v", entry.Data)
	}
}
