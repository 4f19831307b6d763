// Package unlockcache remembers, on the visitor's side, which gated resources
// were unlocked and with which token. It only decides whether the locked-content
// gate is shown; the server never consults it.
package unlockcache

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

// DefaultNamespace prefixes the storage key so several sites can share one store.
const DefaultNamespace = "addonware"

// Storage mirrors browser local storage: string values under string keys.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Cache is not safe for concurrent use; it serves a single visitor session.
type Cache struct {
	storage   Storage
	namespace string
	now       func() time.Time
}

// New returns a cache over storage. An empty namespace selects DefaultNamespace.
func New(storage Storage, namespace string) *Cache {
	if strings.TrimSpace(namespace) == "" {
		namespace = DefaultNamespace
	}
	return &Cache{
		storage:   storage,
		namespace: namespace,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *Cache) key() string { return c.namespace + ":unlocks" }

// load reads all records. Unreadable or corrupt data counts as "nothing unlocked".
func (c *Cache) load() map[string]models.UnlockRecord {
	out := map[string]models.UnlockRecord{}
	raw, ok, err := c.storage.Get(c.key())
	if err != nil || !ok || strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]models.UnlockRecord{}
	}
	return out
}

func (c *Cache) save(records map[string]models.UnlockRecord) error {
	if len(records) == 0 {
		return c.storage.Remove(c.key())
	}
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.storage.Set(c.key(), string(b))
}

// IsUnlocked reports whether resourceID was remembered with a non-empty token.
func (c *Cache) IsUnlocked(resourceID string) bool {
	r, ok := c.load()[resourceID]
	return ok && r.Token != ""
}

// Token returns the remembered token for resourceID.
func (c *Cache) Token(resourceID string) (string, bool) {
	r, ok := c.load()[resourceID]
	if !ok || r.Token == "" {
		return "", false
	}
	return r.Token, true
}

// Remember stores token for resourceID, stamped with the current time.
func (c *Cache) Remember(resourceID, token string) error {
	return c.Put(resourceID, models.UnlockRecord{Token: token, UnlockedAt: c.now()})
}

// Put stores a record as received from the server's verification response.
func (c *Cache) Put(resourceID string, rec models.UnlockRecord) error {
	if strings.TrimSpace(resourceID) == "" || strings.TrimSpace(rec.Token) == "" {
		return nil
	}
	if rec.UnlockedAt.IsZero() {
		rec.UnlockedAt = c.now()
	}
	records := c.load()
	records[resourceID] = rec
	return c.save(records)
}

// Forget drops the record of resourceID, e.g. after the server rejected its token.
func (c *Cache) Forget(resourceID string) error {
	records := c.load()
	if _, ok := records[resourceID]; !ok {
		return nil
	}
	delete(records, resourceID)
	return c.save(records)
}

// Records returns a copy of every remembered unlock.
func (c *Cache) Records() map[string]models.UnlockRecord {
	return c.load()
}
