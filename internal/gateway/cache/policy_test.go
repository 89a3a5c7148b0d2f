package cache

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestResolveSettingsConflict(t *testing.T) {
	for _, enabled := range []string{"", "true", "false"} {
		h := headers(HeaderCacheSaveOnly, "true", HeaderCacheReadOnly, "TRUE", HeaderCacheEnabled, enabled)
		got, err := ResolveSettings(h)
		if !errors.Is(err, ErrConflictingCacheHeaders) {
			t.Fatalf("enabled=%q: err = %v, want ErrConflictingCacheHeaders", enabled, err)
		}
		if got != (Settings{}) {
			t.Fatalf("enabled=%q: partial settings returned: %+v", enabled, got)
		}
	}
}

func TestResolveSettingsFlags(t *testing.T) {
	cases := []struct {
		name              string
		h                 http.Header
		wantSave, wantRead bool
	}{
		{"none", headers(), false, false},
		{"enabled", headers(HeaderCacheEnabled, "true"), true, true},
		{"enabled mixed case", headers(HeaderCacheEnabled, "TrUe"), true, true},
		{"enabled not true", headers(HeaderCacheEnabled, "yes"), false, false},
		{"save only", headers(HeaderCacheSaveOnly, "true"), true, false},
		{"read only", headers(HeaderCacheReadOnly, "true"), false, true},
		{"enabled + save only", headers(HeaderCacheEnabled, "true", HeaderCacheSaveOnly, "true"), true, false},
		{"enabled + read only", headers(HeaderCacheEnabled, "true", HeaderCacheReadOnly, "true"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveSettings(tc.h)
			if err != nil {
				t.Fatal(err)
			}
			if got.ShouldSaveToCache != tc.wantSave || got.ShouldReadFromCache != tc.wantRead {
				t.Fatalf("save=%v read=%v, want save=%v read=%v", got.ShouldSaveToCache, got.ShouldReadFromCache, tc.wantSave, tc.wantRead)
			}
		})
	}
}

func TestResolveSettingsCacheControl(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "public, max-age=0"},
		{"no-cache", "public, max-age=0"},
		{"max-age=3600", "public, max-age=3600"},
		{"s-maxage=100000000", "public, max-age=604800"},
		{"max-age=10, s-maxage=20", "public, max-age=20"},
		{"public, max-age=604800", "public, max-age=604800"},
		{"max-age=604801", "public, max-age=604800"},
		{"max-age=abc", "public, max-age=0"},
		{"max-age=99999999999999999999999", "public, max-age=604800"},
	}
	for _, tc := range cases {
		got, err := ResolveSettings(headers(HeaderCacheControl, tc.in))
		if err != nil {
			t.Fatal(err)
		}
		if got.CacheControl != tc.want {
			t.Errorf("Cache-Control %q -> %q, want %q", tc.in, got.CacheControl, tc.want)
		}
	}
}

func TestResolveSettingsDeterministic(t *testing.T) {
	h := headers(HeaderCacheEnabled, "true", HeaderCacheControl, "s-maxage=60")
	a, errA := ResolveSettings(h)
	b, errB := ResolveSettings(h)
	if a != b || errA != errB {
		t.Fatalf("non-deterministic: %+v/%v vs %+v/%v", a, errA, b, errB)
	}
}

func TestSettingsMaxAge(t *testing.T) {
	s, _ := ResolveSettings(headers(HeaderCacheControl, "max-age=90"))
	if s.MaxAge() != 90*time.Second {
		t.Fatalf("MaxAge = %v", s.MaxAge())
	}
	s, _ = ResolveSettings(headers())
	if s.MaxAge() != 0 {
		t.Fatalf("default MaxAge = %v", s.MaxAge())
	}
	if s.Enabled() {
		t.Fatal("no headers should leave cache disabled")
	}
}
