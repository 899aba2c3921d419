package s3

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saransh1220/talentbook/internal/modules/media/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
}

func fakeS3(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func newStorage(t *testing.T, endpoint, public string) *S3Storage {
	t.Helper()
	st, err := NewS3Storage(context.Background(), S3Config{
		BucketName:     "media",
		Region:         "us-east-1",
		Endpoint:       endpoint,
		PublicEndpoint: public,
		AccessKey:      "minio",
		SecretKey:      "minio123",
	})
	require.NoError(t, err)
	return st
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), S3Config{})
	require.EqualError(t, err, "bucket name is required")
}

func TestS3Storage_PresignUsesPublicEndpoint(t *testing.T) {
	st := newStorage(t, "minio:9000", "localhost:9000")
	ctx := context.Background()
	key := "talent/u1/headshot/abc.png"

	put, err := st.PresignPut(ctx, key, "image/png", 15*time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(put)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/media/"+key, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")

	get, err := st.PresignGet(ctx, key, time.Hour)
	require.NoError(t, err)
	u, err = url.Parse(get)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestS3Storage_Head(t *testing.T) {
	ts, requests := fakeS3(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.png") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "2048")
		w.WriteHeader(http.StatusOK)
	})
	st := newStorage(t, ts.URL, "")
	ctx := context.Background()

	info, err := st.Head(ctx, "talent/u1/headshot/a.png")
	require.NoError(t, err)
	assert.Equal(t, domain.ObjectInfo{ContentType: "image/png", Size: 2048}, info)

	_, err = st.Head(ctx, "talent/u1/headshot/missing.png")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	reqs := requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, recorded{method: http.MethodHead, path: "/media/talent/u1/headshot/a.png"}, reqs[0])
}

func TestS3Storage_Delete(t *testing.T) {
	ts, requests := fakeS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	st := newStorage(t, ts.URL, "")

	require.NoError(t, st.Delete(context.Background(), "talent/u1/video/v.mp4"))
	assert.Equal(t, []recorded{{method: http.MethodDelete, path: "/media/talent/u1/video/v.mp4"}}, requests())
}

func TestS3Storage_Unreachable(t *testing.T) {
	st := newStorage(t, "http://127.0.0.1:1", "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := st.Head(ctx, "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrObjectNotFound))
	require.Error(t, st.Delete(ctx, "k"))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "http://minio:9000", normalizeEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", normalizeEndpoint("minio:9000", true))
	assert.Equal(t, "https://s3.example.com", normalizeEndpoint("https://s3.example.com", false))
	assert.True(t, hasHTTPPrefix("http://x"))
	assert.False(t, hasHTTPPrefix("x"))
}
