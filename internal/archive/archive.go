package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("archive",
	fx.Provide(NewArchiver),
)

const (
	defaultPrefix = "webhooks"
	contentType   = "application/x-snappy"
	objectSuffix  = ".json.sz"
)

var ErrEmptyPayload = errors.New("archive: empty payload")

// Archiver stores raw webhook payloads for later audit.
type Archiver interface {
	Put(ctx context.Context, eventID string, payload []byte) (string, error)
}

type Params struct {
	fx.In

	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

func NewArchiver(p Params) (Archiver, error) {
	if !p.Cfg.Archive.Enabled() {
		return Noop{}, nil
	}
	return NewS3Archiver(p.Cfg.Archive, p.Clock, p.Log)
}

// Noop drops payloads. It is used when no bucket is configured.
type Noop struct{}

func (Noop) Put(context.Context, string, []byte) (string, error) { return "", nil }

type S3Archiver struct {
	bucket string
	prefix string
	client *s3.Client
	clock  clock.Clock
	log    *zap.Logger
}

func NewS3Archiver(cfg config.ArchiveConfig, clk clock.Clock, log *zap.Logger) (*S3Archiver, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}

	options := s3.Options{
		Region:                     cfg.Region,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		options.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
		options.UsePathStyle = true
	}

	return &S3Archiver{
		bucket: cfg.Bucket,
		prefix: prefix,
		client: s3.New(options),
		clock:  clk,
		log:    log.Named("archive"),
	}, nil
}

// Put writes the snappy-compressed payload and returns the object key.
func (a *S3Archiver) Put(ctx context.Context, eventID string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	key := a.objectKey(ctx, eventID)
	body := snappy.Encode(nil, payload)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}

	a.log.Debug("payload archived", zap.String("key", key), zap.Int("raw_bytes", len(payload)), zap.Int("stored_bytes", len(body)))
	return key, nil
}

func (a *S3Archiver) objectKey(ctx context.Context, eventID string) string {
	now := a.clock.Now(ctx).UTC()
	name := uuid.NewString()
	if id := sanitize(eventID); id != "" {
		name = id + "-" + name
	}
	return path.Join(a.prefix, fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()), name+objectSuffix)
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, strings.TrimSpace(id))
}

// Decode reverses the encoding applied by Put.
func Decode(stored []byte) ([]byte, error) {
	return snappy.Decode(nil, stored)
}
