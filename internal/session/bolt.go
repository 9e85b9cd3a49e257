package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.etcd.io/bbolt"
)

// Bucket and key names under which the token is persisted. They are part of
// the on-disk format and must not change.
const (
	BucketName = "session"
	TokenKey   = "token"
)

// lockTimeout bounds how long OpenBolt waits for another process holding the file.
const lockTimeout = time.Second

var (
	// ErrEmptyToken is returned when storing an empty token.
	ErrEmptyToken = goerr.New("empty session token")
	// ErrLocked is returned when another reportview process holds the store.
	ErrLocked = goerr.New("session store is in use by another process")
)

// Bolt is a Store persisted in a bbolt file. The token is read once at open
// and served from memory afterwards; writes go through to disk.
type Bolt struct {
	db    *bbolt.DB
	mu    sync.RWMutex
	token string
}

// OpenBolt opens (creating if needed) the store at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, goerr.Wrap(err, "create state dir", goerr.V("path", path))
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, goerr.Wrap(ErrLocked, "open session store", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "open session store", goerr.V("path", path))
	}

	s := &Bolt{db: db}
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		if v := b.Get([]byte(TokenKey)); v != nil {
			s.token = string(v)
		}
		return nil
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, goerr.Wrap(err, "read session store", goerr.V("path", path))
	}
	return s, nil
}

func (s *Bolt) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Bolt) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		return b.Put([]byte(TokenKey), []byte(token))
	})
	if err != nil {
		return goerr.Wrap(err, "save session token")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Bolt) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(TokenKey))
	})
	if err != nil {
		return goerr.Wrap(err, "clear session token")
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// Close releases the file lock.
func (s *Bolt) Close() error {
	return s.db.Close()
}
