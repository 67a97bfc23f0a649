package logging

import (
	"testing"
)

func TestLoggerLevelsAndRecent(t *testing.T){
	SetLevel("debug")
	l := New("test")
	l.Info("hello", "k", 1)
	l.Debug("dbg", "a", 2)
	l.Error("oops")
	items := Recent(5)
	if len(items) == 0 { t.Fatalf("expected recent logs") }
	if items[0].Msg != "oops" { t.Fatalf("expected newest-first ordering, got %q", items[0].Msg) }
}

func TestLevelGating(t *testing.T){
	SetLevel("error")
	t.Cleanup(func(){ SetLevel("info") })
	l := New("test")
	before := len(Recent(0))
	l.Debug("suppressed")
	l.Info("suppressed too")
	if got := len(Recent(0)); got != before {
		t.Fatalf("expected debug/info to be suppressed at error level (before=%d after=%d)", before, got)
	}
	l.Error("kept")
	if items := Recent(1); len(items) == 0 || items[0].Msg != "kept" {
		t.Fatalf("expected error entry to be recorded")
	}
}

func TestNewPreservesRuntimeLevel(t *testing.T){
	t.Setenv("LOG_LEVEL", "")
	SetLevel("error")
	t.Cleanup(func(){ SetLevel("info") })
	New("test")
	if got := GetLevel(); got != "error" {
		t.Fatalf("New reset runtime level to %q", got)
	}
	t.Setenv("LOG_LEVEL", "debug")
	New("test")
	if got := GetLevel(); got != "debug" {
		t.Fatalf("LOG_LEVEL override not applied, got %q", got)
	}
}

func TestSetLevelRoundTrip(t *testing.T){
	for _, lvl := range []string{"debug", "info", "error"} {
		SetLevel(lvl)
		if got := GetLevel(); got != lvl { t.Fatalf("SetLevel(%q) then GetLevel()=%q", lvl, got) }
	}
	SetLevel("bogus")
	if GetLevel() != "info" { t.Fatalf("unknown level should fall back to info") }
}

func TestFieldsFromKV(t *testing.T){
	m := fieldsFromKV([]any{"a", 1, "b", "x", 7, "ignored", "dangling"})
	if m["a"] != 1 || m["b"] != "x" { t.Fatalf("unexpected fields: %#v", m) }
	if _, ok := m["7"]; ok { t.Fatalf("non-string key should be skipped") }
	if fieldsFromKV(nil) != nil { t.Fatalf("empty kv should yield nil map") }
}
