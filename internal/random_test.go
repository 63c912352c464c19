package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}
	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("parse session id: %v", err)
	}
	if parsed != sid {
		t.Fatal("session id changed across round trip")
	}
	if len(sid.String()) != 22 {
		t.Fatalf("expected 22-char id, got %q", sid.String())
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "short", "!!!!!!!!!!!!!!!!!!!!!!", "AAAAAAAAAAAAAAAAAAAAAAAA"} {
		if ValidSessionID(in) {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func FuzzParseSessionID(f *testing.F) {
	f.Add("")
	f.Add("AAAAAAAAAAAAAAAAAAAAAA")
	f.Fuzz(func(t *testing.T, s string) {
		sid, err := ParseSessionID(s)
		if err != nil {
			return
		}
		if _, err := ParseSessionID(sid.String()); err != nil {
			t.Fatalf("re-parse failed: %v", err)
		}
	})
}
