package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"voicemailboard/internal/models"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultLinkTTL = 15 * time.Minute

type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	LinkTTL         time.Duration

	// 비어 있으면 클라이언트 인증 정보로 서명
	GoogleAccessID string
	PrivateKey     []byte

	ClientOptions []option.ClientOption
}

// GCSRegistry writes objects with a DoesNotExist precondition, so a
// concurrent second claim fails with 412 instead of overwriting.
type GCSRegistry struct {
	client         *gcs.Client
	bucket         *gcs.BucketHandle
	prefix         string
	linkTTL        time.Duration
	googleAccessID string
	privateKey     []byte
}

func NewGCSRegistry(ctx context.Context, cfg GCSConfig) (*GCSRegistry, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("NewGCSRegistry(): bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, cfg.ClientOptions...)
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSRegistry(): failed to create storage client: %w", err)
	}
	ttl := cfg.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	return &GCSRegistry{
		client:         client,
		bucket:         client.Bucket(cfg.Bucket),
		prefix:         cfg.Prefix,
		linkTTL:        ttl,
		googleAccessID: cfg.GoogleAccessID,
		privateKey:     cfg.PrivateKey,
	}, nil
}

func (r *GCSRegistry) objectName(number string) string {
	return path.Join(r.prefix, models.FileName(number))
}

// classifyGCSError maps client errors onto the registry taxonomy.
func classifyGCSError(number string, err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, number)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", models.ErrNotFound, number)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %s", models.ErrCodeOccupied, number)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
}

func (r *GCSRegistry) IsFree(ctx context.Context, number string) (bool, error) {
	if err := models.ValidateNumber(number); err != nil {
		return false, err
	}
	_, err := r.bucket.Object(r.objectName(number)).Attrs(ctx)
	if err == nil {
		return false, nil
	}
	err = classifyGCSError(number, err)
	if errors.Is(err, models.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (r *GCSRegistry) Store(ctx context.Context, number string, wav io.Reader) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	name := r.objectName(number)
	w := r.bucket.Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "audio/wav"

	if _, err := io.Copy(w, wav); err != nil {
		// 업로드 취소
		cancel()
		w.Close()
		return models.Recording{}, fmt.Errorf("GCSRegistry.Store(): write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return models.Recording{}, classifyGCSError(number, err)
	}

	attrs := w.Attrs()
	logrus.WithField("number", number).Infof("GCSRegistry.Store(): uploaded gs://%s/%s", attrs.Bucket, attrs.Name)
	return models.Recording{Number: number, AudioRef: attrs.Name, CreatedAt: attrs.Created}, nil
}

func (r *GCSRegistry) Resolve(ctx context.Context, number string) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}
	attrs, err := r.bucket.Object(r.objectName(number)).Attrs(ctx)
	if err != nil {
		return models.Recording{}, classifyGCSError(number, err)
	}
	return models.Recording{Number: number, AudioRef: attrs.Name, CreatedAt: attrs.Created}, nil
}

// Link signs a V4 GET URL valid for linkTTL.
func (r *GCSRegistry) Link(_ context.Context, rec models.Recording) (string, error) {
	url, err := r.bucket.SignedURL(rec.AudioRef, &gcs.SignedURLOptions{
		GoogleAccessID: r.googleAccessID,
		PrivateKey:     r.privateKey,
		Scheme:         gcs.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        time.Now().Add(r.linkTTL),
	})
	if err != nil {
		return "", fmt.Errorf("%w: sign url: %v", models.ErrBackendUnavailable, err)
	}
	return url, nil
}

func (r *GCSRegistry) Close() error {
	return r.client.Close()
}
