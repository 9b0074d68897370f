package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"voicemailboard/internal/models"

	"github.com/google/renameio/v2"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
)

// SQLITE_CONSTRAINT_UNIQUE
const sqliteConstraintUnique = 2067

// LocalRegistry keeps metadata in SQLite and WAV files in uploadDir.
type LocalRegistry struct {
	db        *sql.DB
	uploadDir string
	urlPrefix string
}

func NewLocalRegistry(db *sql.DB, uploadDir, urlPrefix string) (*LocalRegistry, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("NewLocalRegistry(): failed to create upload directory: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalRegistry{db: db, uploadDir: uploadDir, urlPrefix: urlPrefix}, nil
}

func (r *LocalRegistry) IsFree(ctx context.Context, number string) (bool, error) {
	if err := models.ValidateNumber(number); err != nil {
		return false, err
	}
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM recordings WHERE number = ?", number).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	return false, nil
}

// Store writes wav to a pending file and publishes it only after the INSERT
// wins the UNIQUE constraint. The losing writer discards its pending file.
func (r *LocalRegistry) Store(ctx context.Context, number string, wav io.Reader) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}

	name := models.FileName(number)
	pending, err := renameio.NewPendingFile(filepath.Join(r.uploadDir, name), renameio.WithPermissions(0644))
	if err != nil {
		return models.Recording{}, fmt.Errorf("Store(): create pending file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, wav); err != nil {
		return models.Recording{}, fmt.Errorf("Store(): write pending file: %w", err)
	}

	rec := models.Recording{
		Number:    number,
		AudioRef:  name,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Recording{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO recordings(number, file_path, created_at) VALUES(?, ?, ?)",
		rec.Number, rec.AudioRef, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqliteConstraintUnique {
			return models.Recording{}, fmt.Errorf("%w: %s", models.ErrCodeOccupied, number)
		}
		return models.Recording{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	// 트랜잭션 안에서 파일 공개 → 실패 시 행도 롤백
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return models.Recording{}, fmt.Errorf("Store(): publish %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		os.Remove(filepath.Join(r.uploadDir, name))
		return models.Recording{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	logrus.WithField("number", number).Infof("LocalRegistry.Store(): saved %s", name)
	return rec, nil
}

func (r *LocalRegistry) Resolve(ctx context.Context, number string) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}

	var rec models.Recording
	var createdStr string
	row := r.db.QueryRowContext(ctx, "SELECT number, file_path, created_at FROM recordings WHERE number = ?", number)
	if err := row.Scan(&rec.Number, &rec.AudioRef, &createdStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Recording{}, fmt.Errorf("%w: %s", models.ErrNotFound, number)
		}
		return models.Recording{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// Link is the path the static /uploads route serves the file under.
func (r *LocalRegistry) Link(_ context.Context, rec models.Recording) (string, error) {
	return path.Join(r.urlPrefix, rec.AudioRef), nil
}

// FilePath is where the WAV for rec lives on disk.
func (r *LocalRegistry) FilePath(rec models.Recording) string {
	return filepath.Join(r.uploadDir, filepath.Base(rec.AudioRef))
}

func (r *LocalRegistry) Close() error {
	return r.db.Close()
}
