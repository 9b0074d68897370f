package storage

import (
	"context"
	"io"

	"voicemailboard/internal/models"
)

// Registry maps a number to at most one stored recording.
//
// IsFree is advisory and may be stale by the time Store runs. Store is the
// authoritative claim: it must be built on a create-if-absent primitive of
// the backing store and returns models.ErrCodeOccupied when the number is
// already taken.
type Registry interface {
	IsFree(ctx context.Context, number string) (bool, error)
	Store(ctx context.Context, number string, wav io.Reader) (models.Recording, error)
	Resolve(ctx context.Context, number string) (models.Recording, error)
	// Link returns a fetchable reference for rec. Cloud links expire.
	Link(ctx context.Context, rec models.Recording) (string, error)
	Close() error
}

// readerSize reports how many bytes are left in r, or -1 if unknown.
func readerSize(r io.Reader) int64 {
	s, ok := r.(io.Seeker)
	if !ok {
		return -1
	}
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return -1
	}
	return end - cur
}
