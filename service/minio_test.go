package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Lorent-Bloom/lorentbloom/backend/config"
	"github.com/Lorent-Bloom/lorentbloom/backend/model"
)

func TestNewMinioService(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "contracts",
	}

	svc, err := NewMinioService(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if svc.bucket != "contracts" {
		t.Errorf("Expected bucket contracts, got %s", svc.bucket)
	}
}

func TestMinioServicePublicURL(t *testing.T) {
	tests := []struct {
		name       string
		useSSL     bool
		endpoint   string
		bucket     string
		objectName string
		expected   string
	}{
		{
			name:       "http url",
			endpoint:   "localhost:9000",
			bucket:     "contracts",
			objectName: model.ObjectName(model.FolderPending, "000000042"),
			expected:   "http://localhost:9000/contracts/pending/000000042.pdf",
		},
		{
			name:       "https url",
			useSSL:     true,
			endpoint:   "s3.example.com",
			bucket:     "contracts",
			objectName: model.ObjectName(model.FolderSigned, "000000042"),
			expected:   "https://s3.example.com/contracts/signed/000000042.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MinioService{
				bucket: tt.bucket,
				config: &config.MinioConfig{Endpoint: tt.endpoint, UseSSL: tt.useSSL},
			}
			if got := svc.PublicURL(tt.objectName); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestMinioServiceExpiry(t *testing.T) {
	tests := []struct {
		days int
		want time.Duration
	}{
		{3, 72 * time.Hour},
		{0, 7 * 24 * time.Hour},
		{30, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		svc := &MinioService{config: &config.MinioConfig{ExpireDays: tt.days}}
		if got := svc.expiry(); got != tt.want {
			t.Errorf("days=%d: expected %v, got %v", tt.days, tt.want, got)
		}
	}
}

func TestMinioServicePresignedURL(t *testing.T) {
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "contracts",
		Region:     "us-east-1",
		ExpireDays: 1,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	raw, err := svc.URL(context.Background(), model.ObjectName(model.FolderSigned, "000000042"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Invalid URL %q: %v", raw, err)
	}
	if !strings.HasSuffix(u.Path, "/contracts/signed/000000042.pdf") {
		t.Errorf("Unexpected object path %s", u.Path)
	}
	if u.Query().Get("X-Amz-Expires") != "86400" {
		t.Errorf("Expected one day expiry, got %s", u.Query().Get("X-Amz-Expires"))
	}
}
