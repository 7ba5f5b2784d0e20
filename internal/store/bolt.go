package store

import (
	"encoding/json"
	"strings"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("resources")

// BoltStore persists resources to a BoltDB file on disk.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	// Ensure the bucket exists.
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// ---------- CRUD ----------

func (b *BoltStore) Create(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) != nil {
			return ErrAlreadyExists
		}
		return bkt.Put([]byte(key), raw)
	})
}

func (b *BoltStore) Get(key string, target interface{}) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		raw := bkt.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, target)
	})
}

func (b *BoltStore) Update(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return bkt.Put([]byte(key), raw)
	})
}

func (b *BoltStore) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		if bkt.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return bkt.Delete([]byte(key))
	})
}

// ---------- List ----------

func (b *BoltStore) List(prefix string, factory func() interface{}) ([]interface{}, error) {
	var results []interface{}

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		c := bkt.Cursor()
		pfx := []byte(prefix)

		for k, v := c.Seek(pfx); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			obj := factory()
			if err := json.Unmarshal(v, obj); err != nil {
				return err
			}
			results = append(results, obj)
		}
		return nil
	})
	return results, err
}

// ---------- Close ----------

func (b *BoltStore) Close() error {
	return b.db.Close()
}
