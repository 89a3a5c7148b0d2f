package cache

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxCacheAge is the ceiling applied to any caller-requested max-age, in seconds (7 days)
const MaxCacheAge = 60 * 60 * 24 * 7

// Cache policy request headers
const (
	HeaderCacheEnabled  = "Llm0-Cache-Enabled"
	HeaderCacheSaveOnly = "Llm0-Cache-Save-Only"
	HeaderCacheReadOnly = "Llm0-Cache-Read-Only"
	HeaderCacheControl  = "Cache-Control"
)

// ErrConflictingCacheHeaders is returned when save-only and read-only are both set
var ErrConflictingCacheHeaders = errors.New(HeaderCacheSaveOnly + " and " + HeaderCacheReadOnly +
	" are mutually exclusive; use " + HeaderCacheEnabled + " alone instead")

// Settings is the cache behavior derived from a call's headers
type Settings struct {
	ShouldSaveToCache   bool
	ShouldReadFromCache bool
	CacheControl        string
}

var (
	sMaxAgePattern = regexp.MustCompile(`s-maxage=(\d+)`)
	maxAgePattern  = regexp.MustCompile(`max-age=(\d+)`)
)

// ResolveSettings maps request headers to cache settings. It has no side effects.
func ResolveSettings(h http.Header) (Settings, error) {
	enabled := headerTrue(h, HeaderCacheEnabled)
	saveOnly := headerTrue(h, HeaderCacheSaveOnly)
	readOnly := headerTrue(h, HeaderCacheReadOnly)

	if saveOnly && readOnly {
		return Settings{}, ErrConflictingCacheHeaders
	}

	return Settings{
		ShouldSaveToCache:   (enabled && !readOnly) || saveOnly,
		ShouldReadFromCache: (enabled && !saveOnly) || readOnly,
		CacheControl:        buildCacheControl(h.Get(HeaderCacheControl)),
	}, nil
}

// Enabled reports whether the cache is consulted or written at all
func (s Settings) Enabled() bool {
	return s.ShouldSaveToCache || s.ShouldReadFromCache
}

// MaxAge extracts the storage TTL from the normalized cache-control directive
func (s Settings) MaxAge() time.Duration {
	m := maxAgePattern.FindStringSubmatch(s.CacheControl)
	if m == nil {
		return 0
	}
	return time.Duration(parseSeconds(m[1])) * time.Second
}

func buildCacheControl(cacheControl string) string {
	capture := ""
	if m := sMaxAgePattern.FindStringSubmatch(cacheControl); m != nil {
		capture = m[1]
	} else if m := maxAgePattern.FindStringSubmatch(cacheControl); m != nil {
		capture = m[1]
	}
	if capture == "" {
		return "public, max-age=0"
	}

	seconds := parseSeconds(capture)
	if seconds > MaxCacheAge {
		seconds = MaxCacheAge
	}
	return fmt.Sprintf("public, max-age=%d", seconds)
}

// parseSeconds treats an unparseable capture as zero. Values too large for
// an int clamp to the ceiling.
func parseSeconds(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return MaxCacheAge
		}
		return 0
	}
	return n
}

func headerTrue(h http.Header, key string) bool {
	return strings.ToLower(h.Get(key)) == "true"
}
