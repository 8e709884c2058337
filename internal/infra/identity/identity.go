// Package identity persists this node's libp2p keypair across restarts in
// a bbolt database, so the peer id stays stable instead of being re-rolled
// on every launch.
package identity

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/libp2p/go-libp2p/core/crypto"
	"go.etcd.io/bbolt"
)

const (
	identityBucketName           = "identity"
	privateKeyRecordName         = "private_key"
	dbOpenTimeout                = time.Second
	dbFileMode           os.FileMode = 0o600
)

var identityBucket = []byte(identityBucketName)
var privateKeyRecord = []byte(privateKeyRecordName)

// LoadOrCreate opens the bbolt database at path and returns the stored
// Ed25519 private key, generating and persisting a fresh one on first run.
func LoadOrCreate(path string) (crypto.PrivKey, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("identity: ensure dir %q: %w", dir, err)
		}
	}

	db, err := bbolt.Open(path, dbFileMode, &bbolt.Options{Timeout: dbOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("identity: open db: %w", err)
	}
	defer db.Close()

	var key crypto.PrivKey

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(identityBucket)
		if err != nil {
			return errors.Wrap(err, "create identity bucket")
		}

		if raw := bucket.Get(privateKeyRecord); raw != nil {
			key, err = crypto.UnmarshalPrivateKey(raw)
			if err != nil {
				return errors.Wrap(err, "unmarshal stored private key")
			}
			return nil
		}

		key, _, err = crypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return errors.Wrap(err, "generate private key")
		}
		raw, err := crypto.MarshalPrivateKey(key)
		if err != nil {
			return errors.Wrap(err, "marshal private key")
		}
		return bucket.Put(privateKeyRecord, raw)
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}
