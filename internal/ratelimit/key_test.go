package ratelimit

import "testing"

func TestSubjectID(t *testing.T) {
	tests := []struct {
		name string
		sub  Subject
		want string
	}{
		{"authenticated", Subject{UserID: "carol", RemoteAddr: "10.0.0.1:5000"}, "carol"},
		{"anonymous with port", Subject{RemoteAddr: "10.0.0.1:5000"}, "10.0.0.1"},
		{"anonymous bare host", Subject{RemoteAddr: "10.0.0.1"}, "10.0.0.1"},
		{"no identity at all", Subject{}, "anon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.ID(); got != tt.want {
				t.Fatalf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	got := Key("api", "login", Subject{UserID: "carol"})
	if got != "api:login:carol" {
		t.Fatalf("Key = %q", got)
	}

	// same subject, different actions never collide
	if Key("api", "login", Subject{UserID: "carol"}) == Key("api", "export", Subject{UserID: "carol"}) {
		t.Fatal("actions must not share buckets")
	}

	// anonymous and authenticated traffic count separately
	anon := Key("api", "login", Subject{RemoteAddr: "10.0.0.1:1"})
	authed := Key("api", "login", Subject{UserID: "carol", RemoteAddr: "10.0.0.1:1"})
	if anon == authed {
		t.Fatal("user and IP buckets must be distinct")
	}
}
