package session

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.etcd.io/bbolt"

	"rera-gateway/internal/infra/storage"
)

const (
	boltBucketName  = "session"
	boltKeyName     = "credential"
	boltOpenTimeout = time.Second
)

var (
	boltBucket = []byte(boltBucketName)
	boltKey    = []byte(boltKeyName)
)

// BoltStore хранит учётные данные в bbolt-базе. Каждая транзакция записи
// фиксируется с fsync, так что Save долговечен к моменту возврата.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt открывает (или создаёт) базу по пути path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, storage.DefaultFilePerm, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, errors.Wrap(err, "open session db")
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, bErr := tx.CreateBucketIfNotExists(boltBucket)
		return bErr
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create session bucket")
	}
	return &BoltStore{db: db}, nil
}

// Load возвращает сохранённое значение или пустую строку.
func (b *BoltStore) Load(_ context.Context) (string, error) {
	var credential string
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		// Значение валидно только внутри транзакции: копируем через string().
		credential = string(bucket.Get(boltKey))
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "read session")
	}
	return credential, nil
}

// Save перезаписывает значение.
func (b *BoltStore) Save(_ context.Context, credential string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket, bErr := tx.CreateBucketIfNotExists(boltBucket)
		if bErr != nil {
			return bErr
		}
		return bucket.Put(boltKey, []byte(credential))
	})
	if err != nil {
		return errors.Wrap(err, "write session")
	}
	return nil
}

// Clear удаляет значение. Delete отсутствующего ключа в bbolt: no-op.
func (b *BoltStore) Clear(_ context.Context) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltKey)
	})
	if err != nil {
		return errors.Wrap(err, "clear session")
	}
	return nil
}

// Close закрывает файл базы.
func (b *BoltStore) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
