package playback

import (
	"context"
	"errors"

	"voicemailboard/internal/metrics"
	"voicemailboard/internal/models"
	"voicemailboard/internal/storage"
)

// PlaybackRef is what listen hands back to the client. Cloud links are
// short-lived and are not tracked here; local links are served by /uploads.
type PlaybackRef struct {
	Number    string           `json:"number"`
	Link      string           `json:"link"`
	Recording models.Recording `json:"-"`
}

type Resolver struct {
	registry storage.Registry
	metrics  *metrics.Metrics
}

func NewResolver(registry storage.Registry, m *metrics.Metrics) *Resolver {
	return &Resolver{registry: registry, metrics: m}
}

func (r *Resolver) Resolve(ctx context.Context, number string) (PlaybackRef, error) {
	if err := models.ValidateNumber(number); err != nil {
		return PlaybackRef{}, err
	}
	rec, err := r.registry.Resolve(ctx, number)
	if err != nil {
		r.observe(err)
		return PlaybackRef{}, err
	}
	link, err := r.registry.Link(ctx, rec)
	if err != nil {
		r.observe(err)
		return PlaybackRef{}, err
	}
	r.observe(nil)
	return PlaybackRef{Number: rec.Number, Link: link, Recording: rec}, nil
}

func (r *Resolver) observe(err error) {
	if r.metrics == nil {
		return
	}
	result := "found"
	switch {
	case errors.Is(err, models.ErrNotFound):
		result = "not_found"
	case errors.Is(err, models.ErrInvalidCode):
		result = "invalid_code"
	case errors.Is(err, models.ErrBackendUnavailable):
		result = "backend_unavailable"
	case err != nil:
		result = "error"
	}
	r.metrics.PlaybackLookups.WithLabelValues(result).Inc()
}
