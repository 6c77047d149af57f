package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/harness/pkg/types"
)

var (
	bucketServices = []byte("services")
	bucketTasks    = []byte("tasks")
)

// BoltBackend persists services and tasks to a local bbolt file, one JSON
// document per key. Grounded on warren's pkg/storage/boltdb.go: a bucket
// per entity kind, created up front, create-or-update sharing one Put path.
type BoltBackend struct {
	db *bolt.DB
}

// NewBoltBackend opens (creating if necessary) a bbolt database under
// dataDir/registry.db.
func NewBoltBackend(dataDir string) (*BoltBackend, error) {
	dbPath := filepath.Join(dataDir, "registry.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketServices, bucketTasks} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Close() error { return b.db.Close() }

func (b *BoltBackend) SaveService(entry types.ServiceEntry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketServices).Put([]byte(entry.Name), data)
	})
}

func (b *BoltBackend) DeleteService(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServices).Delete([]byte(name))
	})
}

func (b *BoltBackend) LoadServices() ([]types.ServiceEntry, error) {
	var entries []types.ServiceEntry
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketServices).ForEach(func(k, v []byte) error {
			var entry types.ServiceEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

func (b *BoltBackend) SaveTask(entry types.TaskEntry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketTasks).Put([]byte(entry.Name), data)
	})
}

func (b *BoltBackend) DeleteTask(name string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTasks).Delete([]byte(name))
	})
}

func (b *BoltBackend) LoadTasks() ([]types.TaskEntry, error) {
	var entries []types.TaskEntry
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTasks).ForEach(func(k, v []byte) error {
			var entry types.TaskEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}
