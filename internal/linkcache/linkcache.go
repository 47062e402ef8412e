// Package linkcache keeps the device-local shadow of the last queue linked
// to each display. It is never authoritative: it only bridges the window in
// which the remote relation cannot be read back.
package linkcache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"strconv"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/store"
)

// Key is the single namespaced key the whole map is persisted under.
const Key = "kds:display-queue-links"

// Cache reads and writes the display → queue map. Every failure is
// swallowed: a lost cache degrades to asking the server again.
type Cache struct {
	kv  store.KV
	key string
}

// New wraps a key-value store.
func New(kv store.KV) *Cache {
	return &Cache{kv: kv, key: Key}
}

// Read returns the whole map, or an empty map when the store is unavailable
// or holds corrupt data.
func (c *Cache) Read(ctx context.Context) map[string]model.Queue {
	entries := make(map[string]model.Queue)
	if c == nil || c.kv == nil {
		return entries
	}
	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Warning: link cache read failed: %v", err)
		}
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Warning: link cache holds corrupt data, ignoring it: %v", err)
		return make(map[string]model.Queue)
	}
	return entries
}

// Write persists the whole map, best effort.
func (c *Cache) Write(ctx context.Context, entries map[string]model.Queue) {
	if c == nil || c.kv == nil {
		return
	}
	if entries == nil {
		entries = map[string]model.Queue{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		log.Printf("Warning: link cache encode failed: %v", err)
		return
	}
	if err := c.kv.Set(ctx, c.key, raw); err != nil {
		log.Printf("Warning: link cache write failed: %v", err)
	}
}

// Lookup returns the cached queue for a display.
func (c *Cache) Lookup(ctx context.Context, displayID int64) (model.Queue, bool) {
	q, ok := c.Read(ctx)[strconv.FormatInt(displayID, 10)]
	return q, ok
}

// Put records the queue last linked to a display. The read-modify-write is
// not atomic; concurrent writers for different displays may drop each
// other's key.
func (c *Cache) Put(ctx context.Context, displayID int64, q model.Queue) {
	entries := c.Read(ctx)
	entries[strconv.FormatInt(displayID, 10)] = q
	c.Write(ctx, entries)
}

// Delete forgets a display.
func (c *Cache) Delete(ctx context.Context, displayID int64) {
	entries := c.Read(ctx)
	key := strconv.FormatInt(displayID, 10)
	if _, ok := entries[key]; !ok {
		return
	}
	delete(entries, key)
	c.Write(ctx, entries)
}

// Queues returns every cached queue, ordered by display key.
func (c *Cache) Queues(ctx context.Context) []model.Queue {
	entries := c.Read(ctx)
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	queues := make([]model.Queue, 0, len(entries))
	for _, key := range keys {
		queues = append(queues, entries[key])
	}
	return queues
}
