package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"
)

// GCSStorage uploads result files to a Google Cloud Storage bucket. The
// bucket is private, so clients download through the gateway results route.
type GCSStorage struct {
	service *gstorage.Service
	bucket  string
	urlFor  URLFunc
}

// NewGCSStorage authenticates with the service account email and private key.
// urlFor maps an object name to the gateway URL that streams it back.
func NewGCSStorage(ctx context.Context, cfg GCSConfig, urlFor URLFunc) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs results storage requires a bucket")
	}
	jwtCfg := &jwt.Config{
		Email:      cfg.Email,
		PrivateKey: []byte(cfg.Key),
		Scopes:     []string{gstorage.DevstorageReadWriteScope},
		TokenURL:   google.JWTTokenURL,
	}
	return newGCSStorage(ctx, cfg.Bucket, urlFor, oauth2.NewClient(ctx, jwtCfg.TokenSource(ctx)))
}

func newGCSStorage(ctx context.Context, bucket string, urlFor URLFunc, client *http.Client, opts ...option.ClientOption) (*GCSStorage, error) {
	if urlFor == nil {
		return nil, fmt.Errorf("gcs results storage requires a download url builder")
	}
	service, err := gstorage.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs service: %w", err)
	}
	return &GCSStorage{service: service, bucket: bucket, urlFor: urlFor}, nil
}

// Upload inserts the object and returns its gateway download URL
func (g *GCSStorage) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	object := &gstorage.Object{Name: name, ContentType: contentType}
	if _, err := g.service.Objects.Insert(g.bucket, object).Media(r).Context(ctx).Do(); err != nil {
		return "", storageError("failed to upload results to gcs", err)
	}
	return g.urlFor(name), nil
}

// Open downloads an object
func (g *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	res, err := g.service.Objects.Get(g.bucket, name).Context(ctx).Download()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageError("failed to download results from gcs", err)
	}
	return res.Body, nil
}
