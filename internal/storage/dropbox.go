package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"voicemailboard/internal/models"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	dropboxTokenURL       = "https://api.dropbox.com/oauth2/token"
	defaultDropboxTimeout = 30 * time.Second
)

// DropboxConfig takes either a long-lived AccessToken or the
// AppKey/AppSecret/RefreshToken triple for renewable credentials.
type DropboxConfig struct {
	AccessToken  string
	AppKey       string
	AppSecret    string
	RefreshToken string
	Root         string
	Timeout      time.Duration

	// 테스트용: api/content 호스트 대신 사용할 주소
	BaseURL    string
	TokenURL   string
	HTTPClient *http.Client
}

// DropboxRegistry stores <digits>.wav under Root. Uploads use mode "add"
// with strict_conflict and no autorename, so an existing file is a
// conflict, never an overwrite.
type DropboxRegistry struct {
	files files.Client
	root  string
}

func NewDropboxRegistry(cfg DropboxConfig) (*DropboxRegistry, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDropboxTimeout
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	var ts oauth2.TokenSource
	switch {
	case cfg.AccessToken != "":
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})
	case cfg.AppKey != "" && cfg.AppSecret != "" && cfg.RefreshToken != "":
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = dropboxTokenURL
		}
		conf := &oauth2.Config{
			ClientID:     cfg.AppKey,
			ClientSecret: cfg.AppSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		}
		ts = conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	default:
		return nil, errors.New("NewDropboxRegistry(): access token or app key/secret/refresh token required")
	}

	// oauth2.NewClient는 base의 Transport만 물려받으므로 timeout을 다시 지정
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = timeout

	config := dropbox.Config{Client: client}
	if cfg.BaseURL != "" {
		baseURL := strings.TrimRight(cfg.BaseURL, "/")
		config.URLGenerator = func(_ string, namespace string, route string) string {
			return fmt.Sprintf("%s/2/%s/%s", baseURL, namespace, route)
		}
	}
	return &DropboxRegistry{files: files.New(config), root: cfg.Root}, nil
}

func (r *DropboxRegistry) objectPath(number string) string {
	return path.Join("/", r.root, models.FileName(number))
}

// dropboxFailure maps an SDK error onto the registry taxonomy. Endpoint
// errors are matched on their error_summary, e.g. "path/conflict/file/..".
func dropboxFailure(number string, err error, summary string) error {
	switch {
	case strings.HasPrefix(summary, "path/not_found"):
		return fmt.Errorf("%w: %s", models.ErrNotFound, number)
	case strings.HasPrefix(summary, "path/conflict"):
		return fmt.Errorf("%w: %s", models.ErrCodeOccupied, number)
	}
	return fmt.Errorf("%w: dropbox: %v", models.ErrBackendUnavailable, err)
}

func (r *DropboxRegistry) metadata(number string) (*files.FileMetadata, error) {
	res, err := r.files.GetMetadata(files.NewGetMetadataArg(r.objectPath(number)))
	if err != nil {
		var apiErr files.GetMetadataAPIError
		if errors.As(err, &apiErr) {
			return nil, dropboxFailure(number, err, apiErr.ErrorSummary)
		}
		return nil, dropboxFailure(number, err, "")
	}
	meta, ok := res.(*files.FileMetadata)
	if !ok {
		// 같은 이름의 폴더가 있으면 번호를 쓸 수 없음
		return nil, fmt.Errorf("%w: %s is not a file", models.ErrBackendUnavailable, r.objectPath(number))
	}
	return meta, nil
}

func (r *DropboxRegistry) IsFree(_ context.Context, number string) (bool, error) {
	if err := models.ValidateNumber(number); err != nil {
		return false, err
	}
	_, err := r.metadata(number)
	if errors.Is(err, models.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (r *DropboxRegistry) Store(_ context.Context, number string, wav io.Reader) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}

	arg := files.NewUploadArg(r.objectPath(number))
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeAdd}}
	arg.Autorename = false
	arg.Mute = true
	arg.StrictConflict = true

	meta, err := r.files.Upload(arg, wav)
	if err != nil {
		var apiErr files.UploadAPIError
		if errors.As(err, &apiErr) {
			return models.Recording{}, dropboxFailure(number, err, apiErr.ErrorSummary)
		}
		return models.Recording{}, dropboxFailure(number, err, "")
	}

	logrus.WithField("number", number).Infof("DropboxRegistry.Store(): uploaded %s", meta.PathDisplay)
	return models.Recording{Number: number, AudioRef: meta.PathDisplay, CreatedAt: meta.ServerModified}, nil
}

func (r *DropboxRegistry) Resolve(_ context.Context, number string) (models.Recording, error) {
	if err := models.ValidateNumber(number); err != nil {
		return models.Recording{}, err
	}
	meta, err := r.metadata(number)
	if err != nil {
		return models.Recording{}, err
	}
	return models.Recording{Number: number, AudioRef: meta.PathDisplay, CreatedAt: meta.ServerModified}, nil
}

// Link returns a Dropbox temporary link (valid for about four hours).
func (r *DropboxRegistry) Link(_ context.Context, rec models.Recording) (string, error) {
	res, err := r.files.GetTemporaryLink(files.NewGetTemporaryLinkArg(rec.AudioRef))
	if err != nil {
		var apiErr files.GetTemporaryLinkAPIError
		if errors.As(err, &apiErr) {
			return "", dropboxFailure(rec.Number, err, apiErr.ErrorSummary)
		}
		return "", dropboxFailure(rec.Number, err, "")
	}
	return res.Link, nil
}

func (r *DropboxRegistry) Close() error { return nil }
