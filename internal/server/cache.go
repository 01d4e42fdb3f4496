// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// responseCache stores rendered JSON responses for the read-only GET
// endpoints. Keys are the handler name plus a digest of the request's
// path and query, so every distinct argument combination caches
// separately.
type responseCache struct {
	store      *gocache.Cache
	maxEntries int
}

// cachedEntry is one stored response.
type cachedEntry struct {
	status int
	body   []byte
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	return &responseCache{
		store:      gocache.New(ttl, 2*ttl),
		maxEntries: maxEntries,
	}
}

func (c *responseCache) get(key string) (cachedEntry, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return cachedEntry{}, false
	}
	entry, ok := v.(cachedEntry)
	return entry, ok
}

// set stores an entry unless the cache is full. A full cache stops
// admitting new entries until TTL expiry frees space.
func (c *responseCache) set(key string, entry cachedEntry) {
	if c.store.ItemCount() >= c.maxEntries {
		return
	}
	c.store.Set(key, entry, gocache.DefaultExpiration)
}

func cacheKey(name string, r *http.Request) string {
	return fmt.Sprintf("%s:%x", name, md5.Sum([]byte(r.URL.RequestURI())))
}

// recorder tees a handler's response into a buffer so it can be cached
// after being sent.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rec *recorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.body.Write(b)
	return rec.ResponseWriter.Write(b)
}

// cached wraps a GET handler with the response cache. Only successful
// responses are stored; errors always re-execute.
func (s *Server) cached(name string, h http.HandlerFunc) http.HandlerFunc {
	if s.cache == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(name, r)
		if entry, ok := s.cache.get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(entry.status)
			w.Write(entry.body)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		if rec.status == http.StatusOK {
			s.cache.set(key, cachedEntry{status: rec.status, body: rec.body.Bytes()})
		}
	}
}
