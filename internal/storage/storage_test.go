package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/config"
)

var (
	_ Storage = (*minioStorage)(nil)
	_ Storage = (*s3Storage)(nil)
)

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", true, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://already.example.com", false, "https://already.example.com"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.endpoint, tt.ssl); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.endpoint, tt.ssl, got, tt.want)
		}
	}
}

func TestNewS3Storage_Validation(t *testing.T) {
	valid := S3Config{Region: "us-east-1", Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s"}

	tests := map[string]func(c *S3Config){
		"missing bucket": func(c *S3Config) { c.Bucket = "" },
		"missing region": func(c *S3Config) { c.Region = "" },
		"missing keys":   func(c *S3Config) { c.AccessKeyID = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			if _, err := NewS3Storage(context.Background(), cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestS3PresignGet(t *testing.T) {
	store, err := NewS3Storage(context.Background(), S3Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "uploads-bucket",
		AccessKeyID:     "access",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}

	raw, err := store.PresignGet(context.Background(), "uploads/doc.pdf", time.Hour)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("presigned URL does not parse: %v", err)
	}
	if u.Host != "localhost:9000" || u.Path != "/uploads-bucket/uploads/doc.pdf" {
		t.Errorf("presigned URL = %s", raw)
	}
	if u.Query().Get("X-Amz-Expires") != "3600" || u.Query().Get("X-Amz-Signature") == "" {
		t.Errorf("presigned query = %s", u.RawQuery)
	}
}

func TestMinioPresignGet(t *testing.T) {
	client, err := newMinioClient(config.Config{
		StorageEndpoint:  "localhost:9000",
		StorageRegion:    "us-east-1",
		StorageAccessKey: "access",
		StorageSecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("newMinioClient: %v", err)
	}
	store := &minioStorage{client: client, bucketName: "docs"}

	raw, err := store.PresignGet(context.Background(), "uploads/a.docx", 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if !strings.HasPrefix(raw, "http://localhost:9000/docs/uploads/a.docx?") || !strings.Contains(raw, "X-Amz-Expires=900") {
		t.Errorf("presigned URL = %s", raw)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), config.Config{StorageBackend: "azure"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
