package store

import (
	"testing"
	"time"
)

func TestGenerateLocalID(t *testing.T) {
	t.Run("prefix", func(t *testing.T) {
		id := GenerateLocalID()
		if !IsLocalID(id) {
			t.Fatalf("expected local prefix, got %s", id)
		}
	})

	t.Run("strictly increasing on same clock", func(t *testing.T) {
		now := time.Now().Add(time.Hour)
		seen := map[string]bool{}
		prev := ""
		for i := 0; i < 50; i++ {
			id := generateLocalIDAt(now)
			if seen[id] {
				t.Fatalf("duplicate id %s", id)
			}
			seen[id] = true
			if prev != "" && len(id) == len(prev) && id <= prev {
				t.Fatalf("expected %s > %s", id, prev)
			}
			prev = id
		}
	})

	t.Run("not local", func(t *testing.T) {
		for _, id := range []string{"", "local-", "12", "remote-local-x"} {
			if IsLocalID(id) {
				t.Fatalf("IsLocalID(%q) should be false", id)
			}
		}
	})
}
