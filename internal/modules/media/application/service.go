package application

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/saransh1220/talentbook/internal/modules/media/domain"
	"github.com/saransh1220/talentbook/internal/shared/logging"
	"github.com/saransh1220/talentbook/internal/shared/validation"
)

const (
	DefaultUploadTTL   = 15 * time.Minute
	DefaultDownloadTTL = time.Hour
)

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "media_uploads_total",
	Help: "Media upload handshakes by stage and result.",
}, []string{"stage", "result"})

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

type Option func(*MediaService)

func WithTTLs(upload, download time.Duration) Option {
	return func(s *MediaService) {
		if upload > 0 {
			s.uploadTTL = upload
		}
		if download > 0 {
			s.downloadTTL = download
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *MediaService) { s.now = now }
}

// MediaService issues presigned upload URLs and confirms finished uploads.
// The server never touches object bytes.
type MediaService struct {
	storage     domain.ObjectStorage
	validate    *validation.Validator
	uploadTTL   time.Duration
	downloadTTL time.Duration
	now         func() time.Time
	log         logging.Logger
}

func NewMediaService(storage domain.ObjectStorage, log logging.Logger, opts ...Option) *MediaService {
	s := &MediaService{
		storage:     storage,
		validate:    validation.New(),
		uploadTTL:   DefaultUploadTTL,
		downloadTTL: DefaultDownloadTTL,
		now:         time.Now,
		log:         logging.OrDefault(log).With("component", "media.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeyPrefix is the only prefix userID may upload under.
func KeyPrefix(userID uuid.UUID) string {
	return "talent/" + userID.String() + "/"
}

func (s *MediaService) RequestUpload(ctx context.Context, userID uuid.UUID, req domain.UploadRequest) (*domain.UploadTicket, error) {
	if fields := s.validate.Struct(req); fields != nil {
		uploadsTotal.WithLabelValues("request", "invalid").Inc()
		return nil, &domain.ValidationError{Fields: fields}
	}
	if !req.Kind.Allows(req.ContentType) {
		uploadsTotal.WithLabelValues("request", "invalid").Inc()
		return nil, &domain.ValidationError{Fields: map[string]string{
			"contentType": fmt.Sprintf("is not allowed for %s uploads", req.Kind),
		}}
	}

	key := KeyPrefix(userID) + string(req.Kind) + "/" + uuid.NewString() + extension(req.Filename)
	url, err := s.storage.PresignPut(ctx, key, req.ContentType, s.uploadTTL)
	if err != nil {
		uploadsTotal.WithLabelValues("request", "error").Inc()
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	uploadsTotal.WithLabelValues("request", "ok").Inc()
	s.log.Debug("upload url issued", "user_id", userID, "key", key)
	return &domain.UploadTicket{
		Key:       key,
		UploadURL: url,
		Method:    "PUT",
		Headers:   map[string]string{"Content-Type": req.ContentType},
		ExpiresAt: s.now().Add(s.uploadTTL).UTC(),
	}, nil
}

// ConfirmUpload checks that the object under key exists and satisfies its kind's
// rules. Objects that break the rules are deleted.
func (s *MediaService) ConfirmUpload(ctx context.Context, userID uuid.UUID, key string) (*domain.Object, error) {
	kind, err := ownedKind(userID, key)
	if err != nil {
		uploadsTotal.WithLabelValues("confirm", "invalid").Inc()
		return nil, err
	}

	info, err := s.storage.Head(ctx, key)
	if err != nil {
		uploadsTotal.WithLabelValues("confirm", "error").Inc()
		return nil, fmt.Errorf("head %s: %w", key, err)
	}

	if reject := s.check(kind, info); reject != nil {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete rejected upload", "key", key, "error", err)
		}
		uploadsTotal.WithLabelValues("confirm", "rejected").Inc()
		return nil, reject
	}

	url, err := s.storage.PresignGet(ctx, key, s.downloadTTL)
	if err != nil {
		uploadsTotal.WithLabelValues("confirm", "error").Inc()
		return nil, fmt.Errorf("presign download: %w", err)
	}

	uploadsTotal.WithLabelValues("confirm", "ok").Inc()
	s.log.Info("upload confirmed", "user_id", userID, "key", key, "size", info.Size)
	return &domain.Object{
		Key:         key,
		URL:         url,
		ContentType: info.ContentType,
		Size:        info.Size,
		ExpiresAt:   s.now().Add(s.downloadTTL).UTC(),
	}, nil
}

func (s *MediaService) check(kind domain.Kind, info domain.ObjectInfo) error {
	if !kind.Allows(info.ContentType) {
		return &domain.ValidationError{Fields: map[string]string{
			"contentType": fmt.Sprintf("stored object has type %q which is not allowed for %s uploads", info.ContentType, kind),
		}}
	}
	if info.Size > kind.MaxSize() {
		return fmt.Errorf("%w: %d bytes, limit %d", domain.ErrTooLarge, info.Size, kind.MaxSize())
	}
	return nil
}

// ownedKind parses talent/{userID}/{kind}/{name} and returns kind.
func ownedKind(userID uuid.UUID, key string) (domain.Kind, error) {
	if key == "" {
		return "", &domain.ValidationError{Fields: map[string]string{"key": "is required"}}
	}
	rest, ok := strings.CutPrefix(key, KeyPrefix(userID))
	if !ok || path.Clean(key) != key {
		return "", domain.ErrForeignKey
	}
	kind, name, ok := strings.Cut(rest, "/")
	if !ok || name == "" || strings.Contains(name, "/") || !domain.Kind(kind).Valid() {
		return "", &domain.ValidationError{Fields: map[string]string{"key": "is malformed"}}
	}
	return domain.Kind(kind), nil
}

func extension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
