package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOUploader uploads CSV and XLSX exports to an S3-compatible bucket.
type MinIOUploader struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOUploader connects to endpoint and creates bucket if it does not exist.
func NewMinIOUploader(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinIOUploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
		slog.Info("export: bucket created", "bucket", bucket)
	}

	return &MinIOUploader{client: client, bucket: bucket, prefix: "exports"}, nil
}

// ObjectName returns the key an export is stored under: exports/<address>/<basename>.<ext>.
func (u *MinIOUploader) ObjectName(doc Document, f Format) string {
	return path.Join(u.prefix, safeName(doc.Args.Address), doc.BaseName()+"."+string(f))
}

// Publish uploads the CSV and XLSX renditions of doc.
func (u *MinIOUploader) Publish(ctx context.Context, doc Document) error {
	if err := u.put(ctx, u.ObjectName(doc, FormatCSV), strings.NewReader(doc.CSV), int64(len(doc.CSV)), "text/csv"); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, doc); err != nil {
		return fmt.Errorf("rendering xlsx for upload: %w", err)
	}
	return u.put(ctx, u.ObjectName(doc, FormatXLSX), &buf, int64(buf.Len()),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (u *MinIOUploader) put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	info, err := u.client.PutObject(ctx, u.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("uploading %s to %s: %w", name, u.bucket, err)
	}
	slog.Info("export: object uploaded", "bucket", u.bucket, "object", name, "size", info.Size)
	return nil
}
