package state

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"clihub/internal/domain"
)

const (
	schemaVersion = 1

	rootBucketName      = "clihub"
	metaBucketName      = "meta"
	cacheBucketName     = "cache"
	authBucketName      = "auth_status"
	tasksBucketName     = "tasks"
	taskOrderBucketName = "task_order"
	contextBucketName   = "context"
	versionKey          = "version"
)

var contextScopes = []domain.ContextScope{domain.ScopeSession, domain.ScopeProject, domain.ScopeGlobal}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return fmt.Errorf("create root bucket: %w", err)
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		for _, name := range []string{cacheBucketName, authBucketName, tasksBucketName, taskOrderBucketName} {
			if _, err := root.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		contexts, err := root.CreateBucketIfNotExists([]byte(contextBucketName))
		if err != nil {
			return fmt.Errorf("create context bucket: %w", err)
		}
		for _, scope := range contextScopes {
			if _, err := contexts.CreateBucketIfNotExists([]byte(scope)); err != nil {
				return fmt.Errorf("create context scope %s: %w", scope, err)
			}
		}

		currentVersion := readSchemaVersion(meta)
		switch {
		case currentVersion == 0:
			return writeSchemaVersion(meta, schemaVersion)
		case currentVersion > schemaVersion:
			return fmt.Errorf("unsupported state schema version %d", currentVersion)
		case currentVersion < schemaVersion:
			return fmt.Errorf("missing migration path from %d to %d", currentVersion, schemaVersion)
		default:
			return nil
		}
	})
}

func readSchemaVersion(meta *bolt.Bucket) int {
	if meta == nil {
		return 0
	}
	raw := meta.Get([]byte(versionKey))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

func writeSchemaVersion(meta *bolt.Bucket, version int) error {
	return meta.Put([]byte(versionKey), encodeUint64(uint64(version)))
}

func bucket(tx *bolt.Tx, names ...string) (*bolt.Bucket, error) {
	current := tx.Bucket([]byte(rootBucketName))
	if current == nil {
		return nil, fmt.Errorf("missing root bucket")
	}
	for _, name := range names {
		current = current.Bucket([]byte(name))
		if current == nil {
			return nil, fmt.Errorf("missing %s bucket", name)
		}
	}
	return current, nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
