package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/flip/internal/saved"
)

var (
	usersBucket   = []byte("users")
	recordsBucket = []byte("records")
	urlsBucket    = []byte("urls")
	metaBucket    = []byte("metadata")
)

// Store keeps saved articles in a bbolt file. Each user gets a bucket
// holding records by id and an index from URL to id.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

var (
	_ saved.Store       = (*Store)(nil)
	_ saved.BulkChecker = (*Store)(nil)
)

func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{usersBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// lookupKey matches the form Draft.Record stores urls under.
func lookupKey(url string) string {
	return strings.TrimSpace(url)
}

// userBuckets returns the records and url index buckets for user, or nils
// when the user has never saved anything.
func userBuckets(tx *bolt.Tx, user string) (records, urls *bolt.Bucket) {
	ub := tx.Bucket(usersBucket).Bucket([]byte(user))
	if ub == nil {
		return nil, nil
	}
	return ub.Bucket(recordsBucket), ub.Bucket(urlsBucket)
}

func (s *Store) Check(ctx context.Context, user, url string) (saved.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return saved.CheckResult{}, err
	}
	var res saved.CheckResult
	err := s.db.View(func(tx *bolt.Tx) error {
		_, urls := userBuckets(tx, user)
		if urls == nil {
			return nil
		}
		if v := urls.Get([]byte(lookupKey(url))); v != nil {
			res = saved.CheckResult{Saved: true, ID: btoi(v)}
		}
		return nil
	})
	return res, err
}

func (s *Store) BulkCheck(ctx context.Context, user string, urlList []string) (map[string]saved.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]saved.CheckResult, len(urlList))
	err := s.db.View(func(tx *bolt.Tx) error {
		_, urls := userBuckets(tx, user)
		for _, u := range urlList {
			res := saved.CheckResult{}
			if urls != nil {
				if v := urls.Get([]byte(lookupKey(u))); v != nil {
					res = saved.CheckResult{Saved: true, ID: btoi(v)}
				}
			}
			out[u] = res
		}
		return nil
	})
	return out, err
}

func (s *Store) Create(ctx context.Context, user string, d saved.Draft) (saved.Record, error) {
	if err := ctx.Err(); err != nil {
		return saved.Record{}, err
	}
	if err := d.Validate(); err != nil {
		return saved.Record{}, err
	}

	var rec saved.Record
	err := s.db.Update(func(tx *bolt.Tx) error {
		ub, err := tx.Bucket(usersBucket).CreateBucketIfNotExists([]byte(user))
		if err != nil {
			return err
		}
		records, err := ub.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return err
		}
		urls, err := ub.CreateBucketIfNotExists(urlsBucket)
		if err != nil {
			return err
		}

		if urls.Get([]byte(lookupKey(d.URL))) != nil {
			return saved.ErrDuplicate
		}

		seq, err := records.NextSequence()
		if err != nil {
			return err
		}
		rec = d.Record(int64(seq), s.now().UTC())

		data, err := json.Marshal(fromRecord(rec))
		if err != nil {
			return err
		}
		if err := records.Put(itob(rec.ID), data); err != nil {
			return err
		}
		return urls.Put([]byte(rec.URL), itob(rec.ID))
	})
	if err != nil {
		return saved.Record{}, err
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, user string, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		records, urls := userBuckets(tx, user)
		if records == nil {
			return saved.ErrNotFound
		}
		data := records.Get(itob(id))
		if data == nil {
			return saved.ErrNotFound
		}
		var r savedRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("decoding record %d: %w", id, err)
		}
		if err := records.Delete(itob(id)); err != nil {
			return err
		}
		return urls.Delete([]byte(r.URL))
	})
}

// List returns the user's records newest first.
func (s *Store) List(ctx context.Context, user string) ([]saved.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := []saved.Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b, _ := userBuckets(tx, user)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_ []byte, v []byte) error {
			var r savedRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r.record())
			return nil
		})
	})
	sortNewestFirst(records)
	return records, err
}

func sortNewestFirst(records []saved.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].SavedAt.Equal(records[j].SavedAt) {
			return records[i].SavedAt.After(records[j].SavedAt)
		}
		return records[i].ID > records[j].ID
	})
}

// Users lists every user with a bucket, sorted.
func (s *Store) Users() ([]string, error) {
	var users []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(usersBucket).ForEachBucket(func(k []byte) error {
			users = append(users, string(k))
			return nil
		})
	})
	return users, err
}

// SetMeta stores a small string value, e.g. the last category viewed.
func (s *Store) SetMeta(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), []byte(value))
	})
}

func (s *Store) Meta(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}
