package alarm

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store wraps BoltDB so armed alarms survive a restart.
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = "alarms"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Put stores the alarm, replacing any previous alarm of the same task.
func (s *Store) Put(a Alarm) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	a.normalize()

	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key(a.TaskID), payload)
	})
}

// Get returns the alarm of a task; ok is false when none is armed.
func (s *Store) Get(taskID int64) (a Alarm, ok bool, err error) {
	if s == nil || s.db == nil {
		return Alarm{}, false, bolt.ErrDatabaseNotOpen
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(key(taskID))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &a)
	})
	return a, ok, err
}

// Delete removes the alarm of a task. Missing alarms are not an error.
func (s *Store) Delete(taskID int64) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key(taskID))
	})
}

// List returns every armed alarm ordered by wake time. Undecodable entries are skipped.
func (s *Store) List() ([]Alarm, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}

	var alarms []Alarm
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			var a Alarm
			if err := json.Unmarshal(v, &a); err != nil {
				return nil
			}
			alarms = append(alarms, a)
			return nil
		})
	})
	sort.SliceStable(alarms, func(i, j int) bool {
		return alarms[i].WakeAt.Before(alarms[j].WakeAt)
	})
	return alarms, err
}

// Size returns the number of armed alarms.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(taskID int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(taskID))
	return b
}
