package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind classifies an upload and decides its key prefix and content-type allow-list.
type Kind string

const (
	KindHeadshot  Kind = "headshot"
	KindPortfolio Kind = "portfolio"
	KindVideo     Kind = "video"
	KindDocument  Kind = "document"
)

const mb = 1 << 20

type kindRule struct {
	contentTypes []string
	maxSize      int64
}

var rules = map[Kind]kindRule{
	KindHeadshot:  {contentTypes: []string{"image/jpeg", "image/png", "image/webp"}, maxSize: 10 * mb},
	KindPortfolio: {contentTypes: []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}, maxSize: 25 * mb},
	KindVideo:     {contentTypes: []string{"video/mp4", "video/quicktime", "video/webm"}, maxSize: 500 * mb},
	KindDocument:  {contentTypes: []string{"application/pdf"}, maxSize: 25 * mb},
}

func (k Kind) Valid() bool {
	_, ok := rules[k]
	return ok
}

// Allows reports whether contentType may be uploaded under k.
func (k Kind) Allows(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range rules[k].contentTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

func (k Kind) MaxSize() int64 {
	return rules[k].maxSize
}

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrForeignKey     = errors.New("object key does not belong to caller")
	ErrTooLarge       = errors.New("object exceeds size limit")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

type UploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	Kind        Kind   `json:"kind" validate:"required,oneof=headshot portfolio video document"`
}

// UploadTicket tells the client where to PUT the bytes. Headers must be sent
// verbatim because they are part of the signature.
type UploadTicket struct {
	Key       string            `json:"key"`
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type ObjectInfo struct {
	ContentType string
	Size        int64
}

// Object is a confirmed upload with a time-limited read URL.
type Object struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ObjectStorage is implemented by S3-compatible stores.
type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Head returns ErrObjectNotFound when key does not exist.
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
