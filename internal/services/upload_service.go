package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/example/barbershop/internal/apperr"
)

// MaxUploadSize is the largest image accepted for payment proofs and catalog photos.
const MaxUploadSize = 5 << 20

var (
	ErrFileTooLarge = apperr.Validation("file_too_large",
		"file must be 5 MB or smaller", "ukuran file maksimal 5 MB")
	ErrNotAnImage = apperr.Validation("file_not_image",
		"only image files are accepted", "hanya file gambar yang diterima")
	ErrEmptyFile = apperr.Validation("file_empty",
		"file is empty", "file kosong")
	ErrUploadNotConfigured = apperr.New(apperr.KindUpstream, "upload_not_configured",
		"media storage is not configured", "penyimpanan media belum dikonfigurasi")
)

// MediaUploader stores an image and returns its public URL.
type MediaUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// UploadService posts images to a Cloudinary-style unsigned upload endpoint.
type UploadService struct {
	endpoint string
	preset   string
	timeout  time.Duration
	client   *http.Client
	log      *zap.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(endpoint, preset string, timeout time.Duration, log *zap.Logger) *UploadService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UploadService{
		endpoint: endpoint,
		preset:   preset,
		timeout:  timeout,
		client:   &http.Client{},
		log:      log.Named("upload"),
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CheckImage enforces the size and content-type policy without uploading.
func CheckImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxUploadSize {
		return "", ErrFileTooLarge
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotAnImage
	}
	return mtype.String(), nil
}

// Upload validates data and stores it, returning the secure URL.
func (s *UploadService) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	contentType, err := CheckImage(data)
	if err != nil {
		return "", err
	}
	if s.endpoint == "" {
		return "", ErrUploadNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if _, err := part.Write(data); err != nil {
		return "", apperr.Internal(err)
	}
	if s.preset != "" {
		if err := writer.WriteField("upload_preset", s.preset); err != nil {
			return "", apperr.Internal(err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", apperr.Internal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", apperr.Internal(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("upload timed out", zap.String("filename", filename), zap.Duration("after", time.Since(start)))
			return "", apperr.Timeout("upload_timeout", err)
		}
		return "", apperr.Upstream("upload_failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperr.Upstream("upload_failed", err)
	}

	var result uploadResponse
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("media api returned status %d", resp.StatusCode)
		if result.Error != nil && result.Error.Message != "" {
			msg += ": " + result.Error.Message
		}
		return "", apperr.Upstream("upload_failed", errors.New(msg))
	}
	if result.SecureURL == "" {
		return "", apperr.Upstream("upload_failed", errors.New("media api response has no secure_url"))
	}

	s.log.Info("image uploaded",
		zap.String("filename", filename),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)),
	)
	return result.SecureURL, nil
}
