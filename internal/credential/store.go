package credential

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store is the key/value backend of the credential and session caches.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	DeletePrefix(prefix string) error
	Close() error
}

type MemoryStore struct {
	lk   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) DeletePrefix(prefix string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

type LevelDBStore struct {
	db *leveldb.DB
}

func OpenLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open credential cache %s: %w", dir, err)
	}
	return &LevelDBStore{db: db}, nil
}

// NewLevelDBStoreWithStorage opens the cache on an explicit leveldb storage, e.g. storage.NewMemStorage().
func NewLevelDBStoreWithStorage(stor storage.Storage) (*LevelDBStore, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (l *LevelDBStore) Get(key string) ([]byte, bool, error) {
	value, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (l *LevelDBStore) Put(key string, value []byte) error {
	return l.db.Put([]byte(key), value, nil)
}

func (l *LevelDBStore) DeletePrefix(prefix string) error {
	batch := new(leveldb.Batch)
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return l.db.Write(batch, nil)
}

func (l *LevelDBStore) Close() error {
	return l.db.Close()
}

type RedisStore struct {
	pool *redis.Pool
	ttl  time.Duration
}

func NewRedisPool(url string, password string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     5,
		MaxActive:   0,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			if password != "" {
				return redis.DialURL(url, redis.DialPassword(password))
			}
			return redis.DialURL(url)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewRedisStore shares the caches between processes; entries expire after ttl when ttl > 0.
func NewRedisStore(pool *redis.Pool, ttl time.Duration) *RedisStore {
	return &RedisStore{pool: pool, ttl: ttl}
}

func (r *RedisStore) Get(key string) ([]byte, bool, error) {
	conn := r.pool.Get()
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (r *RedisStore) Put(key string, value []byte) error {
	conn := r.pool.Get()
	defer conn.Close()

	var err error
	if r.ttl > 0 {
		_, err = conn.Do("SET", key, value, "EX", int64(r.ttl.Seconds()))
	} else {
		_, err = conn.Do("SET", key, value)
	}
	return err
}

func (r *RedisStore) DeletePrefix(prefix string) error {
	conn := r.pool.Get()
	defer conn.Close()

	keys, err := redis.Strings(conn.Do("KEYS", prefix+"*"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err = conn.Do("DEL", redis.Args{}.AddFlat(keys)...)
	return err
}

func (r *RedisStore) Close() error {
	return r.pool.Close()
}
