package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/gcp"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client signs upload URLs against a single bucket.
type Client struct {
	storage        *storage.Client
	bucket         string
	publicBaseURL  string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
	signer         *gcp.ServiceAccount
	now            func() time.Time
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// SignedUpload is what a client needs to PUT an object and reference it later.
type SignedUpload struct {
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ObjectKey string    `json:"object_key"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("gcs bucket name is required")
	}
	signer, err := gcp.LoadServiceAccount(gcpCfg)
	if err != nil {
		return nil, fmt.Errorf("reading service account: %w", err)
	}
	sc, err := storage.NewClient(ctx, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := newClient(sc, cfg, signer)
	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func newClient(sc *storage.Client, cfg config.GCSConfig, signer *gcp.ServiceAccount) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return &Client{
		storage:        sc,
		bucket:         cfg.BucketName,
		publicBaseURL:  base,
		uploadExpiry:   cfg.UploadURLExpiry,
		downloadExpiry: cfg.DownloadURLExpiry,
		signer:         signer,
		now:            time.Now,
	}
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// SignedUploadURL returns a V4 signed PUT URL bound to contentType.
func (c *Client) SignedUploadURL(ctx context.Context, objectKey, contentType string) (*SignedUpload, error) {
	if c == nil || c.storage == nil {
		return nil, errors.New("gcs client not initialized")
	}
	if strings.TrimSpace(objectKey) == "" {
		return nil, errors.New("object key is required")
	}
	expiry := c.uploadExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	expiresAt := c.now().Add(expiry).UTC()
	opts := c.signedURLOptions(http.MethodPut, expiresAt)
	opts.ContentType = contentType

	signed, err := c.storage.Bucket(c.bucket).SignedURL(objectKey, opts)
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &SignedUpload{
		UploadURL: signed,
		PublicURL: c.PublicURL(objectKey),
		ObjectKey: objectKey,
		Method:    http.MethodPut,
		ExpiresAt: expiresAt,
	}, nil
}

// SignedDownloadURL returns a V4 signed GET URL for private buckets.
func (c *Client) SignedDownloadURL(ctx context.Context, objectKey string) (string, error) {
	if c == nil || c.storage == nil {
		return "", errors.New("gcs client not initialized")
	}
	expiry := c.downloadExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return c.storage.Bucket(c.bucket).SignedURL(objectKey, c.signedURLOptions(http.MethodGet, c.now().Add(expiry)))
}

func (c *Client) signedURLOptions(method string, expires time.Time) *storage.SignedURLOptions {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  method,
		Expires: expires,
	}
	if c.signer != nil {
		opts.GoogleAccessID = c.signer.ClientEmail
		opts.PrivateKey = []byte(c.signer.PrivateKey)
	}
	return opts
}

// PublicURL is the address the object is served from once uploaded.
func (c *Client) PublicURL(objectKey string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, strings.TrimLeft(objectKey, "/"))
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.storage == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.storage.Bucket(c.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.storage == nil {
		return nil
	}
	return c.storage.Close()
}
