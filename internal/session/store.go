package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSession = []byte("session")

// Store keys
const (
	keyToken           = "token"
	keyIsAuthenticated = "isAuthenticated"
	keyUsername        = "username"
	keyEventDispatched = "authEventDispatched"
)

// Store holds the session fields: bearer token, authenticated flag,
// username, and the one-shot login-event marker. It is the only owner of
// this state; everything else reads through accessors.
//
// Persistence is BoltDB under a per-server cache directory, with a
// memory-only mode when no directory is given (used in tests).
type Store struct {
	db *bolt.DB
	mu sync.RWMutex

	// Write-through memory copy so reads never touch disk on the hot path
	cache map[string]string
}

// NewStore opens the session store. baseCacheDir empty means memory-only.
func NewStore(baseCacheDir, serverURL string) (*Store, error) {
	s := &Store{cache: make(map[string]string)}
	if baseCacheDir == "" {
		return s, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(dir, "session.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	s.loadAll()
	return s, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) loadAll() {
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			s.cache[string(k)] = string(v)
			return nil
		})
	})
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Accessors ===

// Token returns the bearer token, empty when logged out. Pure read.
func (s *Store) Token() string {
	return s.get(keyToken)
}

// Username returns the stored display username.
func (s *Store) Username() string {
	return s.get(keyUsername)
}

// Authenticated reports the stored best-effort authenticated flag.
func (s *Store) Authenticated() bool {
	return s.get(keyIsAuthenticated) == "true"
}

// EventDispatched reports whether the login signal was already emitted
// for this session.
func (s *Store) EventDispatched() bool {
	return s.get(keyEventDispatched) == "true"
}

// SetSession installs a fresh session after a successful login. The token
// is opaque to this layer.
func (s *Store) SetSession(token, username string) {
	s.setAll(map[string]string{
		keyToken:           token,
		keyIsAuthenticated: "true",
		keyUsername:        username,
	})
}

// SetAuthenticated records the outcome of a verification call.
func (s *Store) SetAuthenticated(ok bool) {
	if ok {
		s.set(keyIsAuthenticated, "true")
	} else {
		s.set(keyIsAuthenticated, "false")
	}
}

// SetUsername records the verified username.
func (s *Store) SetUsername(username string) {
	s.set(keyUsername, username)
}

// MarkEventDispatched sets the one-shot login-event marker.
func (s *Store) MarkEventDispatched() {
	s.set(keyEventDispatched, "true")
}

// ClearSession wipes every session field.
func (s *Store) ClearSession() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if b == nil {
			return nil
		}
		for _, k := range []string{keyToken, keyIsAuthenticated, keyUsername, keyEventDispatched} {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

// === Internals ===

func (s *Store) get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key]
}

func (s *Store) set(key, value string) {
	s.setAll(map[string]string{key: value})
}

func (s *Store) setAll(values map[string]string) {
	s.mu.Lock()
	for k, v := range values {
		s.cache[k] = v
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		for k, v := range values {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}
