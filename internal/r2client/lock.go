package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LockStore is the subset of Client a Lock needs.
type LockStore interface {
	PutIfAbsent(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error)
	PutIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

var _ LockStore = (*Client)(nil)

// LockInfo is the JSON body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Lock is a lease held in one object. An expired lease can be taken over,
// and a lease is only ever replaced through an ETag-conditional write.
type Lock struct {
	store LockStore
	key   string
	ttl   time.Duration
	owner string
	now   func() time.Time

	etag string
}

// NewLock returns an unheld lock on key with a random owner ID.
func NewLock(store LockStore, key string, ttl time.Duration) *Lock {
	return &Lock{
		store: store,
		key:   key,
		ttl:   ttl,
		owner: uuid.NewString(),
		now:   time.Now,
	}
}

// Owner identifies this lock instance.
func (l *Lock) Owner() string { return l.owner }

// Acquire takes the lease. It returns false, without error, when another
// owner holds a lease that has not expired.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.lease()
	if err != nil {
		return false, err
	}
	created, etag, err := l.store.PutIfAbsent(ctx, l.key, bytes.NewReader(body), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// Released between our write and read; the next attempt will create it.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	taken, etag, err := l.store.PutIfMatch(ctx, l.key, bytes.NewReader(body), current, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = etag
	}
	return taken, nil
}

// Release deletes the lock when this instance still holds it.
func (l *Lock) Release(ctx context.Context) error {
	if l.etag == "" {
		return nil
	}
	defer func() { l.etag = "" }()

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.owner {
		return nil
	}
	return l.store.Delete(ctx, l.key)
}

func (l *Lock) lease() ([]byte, error) {
	body, err := json.Marshal(LockInfo{Owner: l.owner, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("encode lock: %w", err)
	}
	return body, nil
}

// read returns the current lease and its ETag. A corrupt body yields a nil
// lease, which counts as expired.
func (l *Lock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.store.Download(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
