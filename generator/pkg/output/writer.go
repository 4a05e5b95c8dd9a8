package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
)

// Writer persists the rendered view of a namespace.
type Writer interface {
	WriteView(ctx context.Context, namespace string, view *lookml.View) error
}

// ViewPath returns the relative path of a rendered view.
func ViewPath(namespace, view string) string {
	return path.Join(namespace, "views", view+".view.lkml")
}

func render(view *lookml.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to encode view %s: %w", view.Name, err)
	}
	return buf.Bytes(), nil
}

// DirWriter writes views under a local directory.
type DirWriter struct {
	dir string
}

func NewDirWriter(dir string) (*DirWriter, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	return &DirWriter{dir: dir}, nil
}

func (w *DirWriter) WriteView(ctx context.Context, namespace string, view *lookml.View) error {
	data, err := render(view)
	if err != nil {
		return err
	}
	p := filepath.Join(w.dir, filepath.FromSlash(ViewPath(namespace, view.Name)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// S3PutObjectAPI is the part of the S3 client S3Writer uses.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3WriterConfig struct {
	Logger *slog.Logger
	Bucket string
	Prefix string
	// Client defaults to a client built from the default AWS config chain.
	Client S3PutObjectAPI
}

func (cfg *S3WriterConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	return nil
}

// S3Writer uploads views to s3://bucket/prefix/<namespace>/views/.
type S3Writer struct {
	log *slog.Logger
	cfg S3WriterConfig
}

func NewS3Writer(ctx context.Context, cfg S3WriterConfig) (*S3Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		cfg.Client = s3.NewFromConfig(awsCfg)
	}
	return &S3Writer{log: cfg.Logger, cfg: cfg}, nil
}

func (w *S3Writer) WriteView(ctx context.Context, namespace string, view *lookml.View) error {
	data, err := render(view)
	if err != nil {
		return err
	}
	key := path.Join(w.cfg.Prefix, ViewPath(namespace, view.Name))
	_, err = w.cfg.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.cfg.Bucket, key, err)
	}
	w.log.Debug("output: uploaded view", "bucket", w.cfg.Bucket, "key", key)
	return nil
}

// NewWriter returns an S3Writer for "s3://bucket/prefix" destinations and a
// DirWriter otherwise.
func NewWriter(ctx context.Context, log *slog.Logger, dest string) (Writer, error) {
	if !strings.HasPrefix(dest, "s3://") {
		return NewDirWriter(dest)
	}
	u, err := url.Parse(dest)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 destination %q: %w", dest, err)
	}
	return NewS3Writer(ctx, S3WriterConfig{
		Logger: log,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	})
}
