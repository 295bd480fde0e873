// Package snapshot backs the SQLite database up to R2 and publishes
// materialized schedules as compressed JSON exports.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/garyellow/classroom-planner/internal/config"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/metrics"
	"github.com/garyellow/classroom-planner/internal/r2client"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

// ErrLockHeld is returned by UploadSnapshot when another instance is
// uploading.
var ErrLockHeld = errors.New("snapshot: upload lock held by another instance")

// Store is the object storage the manager writes to. *r2client.Client
// implements it.
type Store interface {
	r2client.LockStore
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Snapshotter writes a consistent copy of the database to a new file.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, dest string) error
}

// Config holds snapshot manager configuration.
type Config struct {
	SnapshotKey  string // e.g. "snapshots/classroom.db.zst"
	ExportPrefix string // e.g. "exports"
	LockKey      string
	LockTTL      time.Duration
	TempDir      string
}

// Manager is safe for concurrent use.
type Manager struct {
	store   Store
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds a Manager. m may be nil.
func New(store Store, cfg Config, m *metrics.Metrics) *Manager {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = config.SnapshotLockTTL
	}
	return &Manager{store: store, cfg: cfg, metrics: m, now: time.Now}
}

// RestoreIfMissing downloads the latest snapshot into dbPath when no local
// database exists. It reports whether a snapshot was restored; a bucket
// without snapshot is not an error.
func (m *Manager) RestoreIfMissing(ctx context.Context, dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat database: %w", err)
	}

	body, etag, err := m.store.Download(ctx, m.cfg.SnapshotKey)
	if errors.Is(err, r2client.ErrNotFound) {
		m.metrics.RecordSnapshot("restore", "missing")
		return false, nil
	}
	if err != nil {
		m.metrics.RecordSnapshot("restore", "error")
		return false, fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return false, fmt.Errorf("create data dir: %w", err)
	}
	// Decompress next to the target so the rename stays on one filesystem.
	partial := dbPath + ".restore"
	if err := r2client.DecompressStream(body, partial); err != nil {
		_ = os.Remove(partial)
		m.metrics.RecordSnapshot("restore", "error")
		return false, fmt.Errorf("decompress snapshot: %w", err)
	}
	if err := os.Rename(partial, dbPath); err != nil {
		_ = os.Remove(partial)
		m.metrics.RecordSnapshot("restore", "error")
		return false, fmt.Errorf("install snapshot: %w", err)
	}

	m.metrics.RecordSnapshot("restore", "success")
	slog.InfoContext(ctx, "database restored from snapshot",
		"key", m.cfg.SnapshotKey,
		"etag", etag,
		"path", dbPath)
	return true, nil
}

// UploadSnapshot uploads a compressed copy of db and returns its ETag. Only
// one instance uploads at a time; the others get ErrLockHeld.
func (m *Manager) UploadSnapshot(ctx context.Context, db Snapshotter) (string, error) {
	lock := r2client.NewLock(m.store, m.cfg.LockKey, m.cfg.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		m.metrics.RecordSnapshot("upload", "error")
		return "", fmt.Errorf("acquire upload lock: %w", err)
	}
	if !acquired {
		m.metrics.RecordSnapshot("upload", "skipped")
		return "", ErrLockHeld
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			slog.WarnContext(ctx, "snapshot lock release failed", "error", err)
		}
	}()

	etag, err := m.upload(ctx, db)
	if err != nil {
		m.metrics.RecordSnapshot("upload", "error")
		return "", err
	}
	m.metrics.RecordSnapshot("upload", "success")
	return etag, nil
}

func (m *Manager) upload(ctx context.Context, db Snapshotter) (string, error) {
	start := time.Now()
	rawPath := filepath.Join(m.cfg.TempDir, fmt.Sprintf("classroom_%d.db", m.now().UnixNano()))
	if err := db.CreateSnapshot(ctx, rawPath); err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(rawPath)

	compressedPath := rawPath + ".zst"
	if err := r2client.CompressFile(rawPath, compressedPath); err != nil {
		return "", fmt.Errorf("compress snapshot: %w", err)
	}
	defer os.Remove(compressedPath)

	f, err := os.Open(compressedPath)
	if err != nil {
		return "", fmt.Errorf("open compressed snapshot: %w", err)
	}
	defer f.Close()

	etag, err := m.store.Upload(ctx, m.cfg.SnapshotKey, f, "application/zstd")
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	slog.InfoContext(ctx, "snapshot uploaded",
		"key", m.cfg.SnapshotKey,
		"etag", etag,
		"duration_ms", time.Since(start).Milliseconds())
	return etag, nil
}

// Export is the JSON document written for a materialized school year.
type Export struct {
	TeacherID    string            `json:"teacherId"`
	SchoolYearID string            `json:"schoolYearId"`
	ExportedAt   time.Time         `json:"exportedAt"`
	Count        int               `json:"count"`
	Sessions     []ExportedSession `json:"sessions"`
}

// ExportedSession is a session with its date rendered as YYYY-MM-DD.
type ExportedSession struct {
	schedule.Session
	Date string `json:"date"`
}

// ExportKey is where the export of a school year is stored.
func (m *Manager) ExportKey(teacherID, schoolYearID string) string {
	return path.Join(m.cfg.ExportPrefix, teacherID, schoolYearID+".json.zst")
}

// ExportSchedule uploads sessions as zstd-compressed JSON and returns the
// object key.
func (m *Manager) ExportSchedule(ctx context.Context, teacherID, schoolYearID string, sessions []schedule.Session) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ExportUpload)
	defer cancel()

	doc := Export{
		TeacherID:    teacherID,
		SchoolYearID: schoolYearID,
		ExportedAt:   m.now().UTC(),
		Count:        len(sessions),
		Sessions:     make([]ExportedSession, 0, len(sessions)),
	}
	for _, s := range sessions {
		doc.Sessions = append(doc.Sessions, ExportedSession{Session: s, Date: dateutil.FormatDate(s.SessionDate)})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		m.metrics.RecordSnapshot("export", "error")
		return "", fmt.Errorf("encode export: %w", err)
	}
	compressed, err := r2client.CompressBytes(data)
	if err != nil {
		m.metrics.RecordSnapshot("export", "error")
		return "", err
	}

	key := m.ExportKey(teacherID, schoolYearID)
	if _, err := m.store.Upload(ctx, key, bytes.NewReader(compressed), "application/zstd"); err != nil {
		m.metrics.RecordSnapshot("export", "error")
		return "", fmt.Errorf("upload export: %w", err)
	}
	m.metrics.RecordSnapshot("export", "success")
	return key, nil
}

// Run uploads a snapshot every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, db Snapshotter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runOnce(ctx, db)
		}
	}
}

// Final uploads one last snapshot during shutdown.
func (m *Manager) Final(ctx context.Context, db Snapshotter) {
	m.runOnce(ctx, db)
}

func (m *Manager) runOnce(ctx context.Context, db Snapshotter) {
	uploadCtx, cancel := context.WithTimeout(ctx, config.SnapshotUpload)
	defer cancel()

	if _, err := m.UploadSnapshot(uploadCtx, db); err != nil {
		if errors.Is(err, ErrLockHeld) {
			slog.InfoContext(ctx, "snapshot skipped, another instance is uploading")
			return
		}
		slog.ErrorContext(ctx, "snapshot upload failed", "error", err)
	}
}
