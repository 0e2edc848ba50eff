package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"riskcalc/internal/risk"

	"go.etcd.io/bbolt"
)

var bucketHistory = []byte("history")

// BoltStore persists results in a bbolt bucket keyed by an increasing
// sequence number, retaining at most keep entries.
type BoltStore struct {
	db   *bbolt.DB
	keep int
}

// OpenBoltStore opens or creates the database file at path.
func OpenBoltStore(path string, keep int) (*BoltStore, error) {
	if keep <= 0 {
		keep = DefaultLength
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create history bucket: %w", err)
	}
	return &BoltStore{db: db, keep: keep}, nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Save appends res and drops the oldest records beyond the retention bound.
func (bs *BoltStore) Save(res risk.RiskResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	return bs.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHistory)
		if bucket == nil {
			return errors.New("history bucket not found")
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		if err := bucket.Put(sequenceKey(seq), data); err != nil {
			return err
		}

		var keys [][]byte
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-bs.keep; i++ {
			if err := bucket.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns up to limit of the newest records, oldest first.
func (bs *BoltStore) Load(limit int) ([]risk.RiskResult, error) {
	var results []risk.RiskResult
	err := bs.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHistory)
		if bucket == nil {
			return errors.New("history bucket not found")
		}
		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(results) < limit; k, v = c.Prev() {
			var res risk.RiskResult
			if err := json.Unmarshal(v, &res); err != nil {
				return fmt.Errorf("unmarshal history record %x: %w", k, err)
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// Clear drops every stored record.
func (bs *BoltStore) Clear() error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketHistory); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketHistory)
		return err
	})
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
