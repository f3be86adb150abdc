package models

import "testing"

func TestNewArticleDefaults(t *testing.T) {
	a := NewArticle("https://example.com/a", "title", "body")

	if a.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if a.Status != StatusMonitoring {
		t.Errorf("expected monitoring status, got %s", a.Status)
	}
	if a.Category != DefaultCategory || a.Severity != DefaultSeverity {
		t.Errorf("expected default tags, got %q/%q", a.Category, a.Severity)
	}
	if b := NewArticle("https://example.com/a", "title", "body"); b.ID == a.ID {
		t.Error("expected distinct ids for distinct articles")
	}
}

func TestHasRemoteImage(t *testing.T) {
	cases := map[string]bool{
		"":                            false,
		"https://cdn.example/a.jpg":   true,
		"http://cdn.example/a.jpg":    true,
		"data:image/png;base64,AAAA":  false,
		"//cdn.example/relative.jpg":  false,
	}
	for ref, want := range cases {
		a := Article{ImageURL: ref}
		if got := a.HasRemoteImage(); got != want {
			t.Errorf("HasRemoteImage(%q) = %v, want %v", ref, got, want)
		}
	}
}

func TestCredentialsConnected(t *testing.T) {
	c := Credentials{BotToken: " 123:abc ", ChatID: "@chan", Status: ConnectionSuccess}
	if !c.Connected() {
		t.Error("expected connected credentials")
	}
	c.Status = ConnectionIdle
	if c.Connected() {
		t.Error("idle credentials must not count as connected")
	}
	if got := c.Trimmed().BotToken; got != "123:abc" {
		t.Errorf("expected trimmed token, got %q", got)
	}
}
