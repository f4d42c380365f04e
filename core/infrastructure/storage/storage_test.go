package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	apperrors "github.com/semlayer/semlayer/core/shared/errors"
)

func TestLocalStorage_UploadAndOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, func(name string) string { return "http://gateway/files/" + name })
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "project-1/results.jsonl", "application/jsonl", strings.NewReader("{\"a\":1}\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://gateway/files/project-1/results.jsonl", url)

	rc, err := s.Open(context.Background(), "project-1/results.jsonl")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))
}

func TestLocalStorage_NotFound(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "project-1/missing.csv")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestLocalStorage_RejectsEscapingNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Upload(context.Background(), "../outside.jsonl", "", strings.NewReader("x"))
	assert.True(t, apperrors.IsValidationError(err))

	_, err = s.Open(context.Background(), "../../etc/passwd")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestLocalStorage_FailedUploadLeavesNoFile(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("partial"))
		pw.CloseWithError(io.ErrUnexpectedEOF)
	}()
	_, err = s.Upload(context.Background(), "project-1/broken.jsonl", "", pr)
	require.Error(t, err)

	_, err = s.Open(context.Background(), "project-1/broken.jsonl")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNew_SelectsBackend(t *testing.T) {
	s, err := New(context.Background(), Config{Local: LocalConfig{Dir: t.TempDir()}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(context.Background(), Config{Backend: "ftp"}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Backend: BackendS3}, nil)
	assert.Error(t, err, "bucket is required")

	_, err = New(context.Background(), Config{Backend: BackendGCS}, nil)
	assert.Error(t, err, "bucket is required")
}

func TestGCSStorage(t *testing.T) {
	var uploaded bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/results/o"):
			body, _ := io.ReadAll(r.Body)
			uploaded = strings.Contains(string(body), "hello")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"project-1/file.jsonl","bucket":"results"}`))
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/storage/v1/b/results/o/"):
			if strings.HasSuffix(r.URL.Path, "missing.jsonl") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
				return
			}
			_, _ = w.Write([]byte("hello\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	var g *GCSStorage
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutPrefix(r.URL.Path, "/results/")
		if !ok {
			http.NotFound(w, r)
			return
		}
		rc, err := g.Open(r.Context(), name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer rc.Close()
		_, _ = io.Copy(w, rc)
	}))
	defer gateway.Close()

	g, err := newGCSStorage(ctx, "results", func(name string) string { return gateway.URL + "/results/" + name },
		srv.Client(), option.WithEndpoint(srv.URL+"/storage/v1/"))
	require.NoError(t, err)

	url, err := g.Upload(ctx, "project-1/file.jsonl", "application/jsonl", strings.NewReader("hello\n"))
	require.NoError(t, err)
	assert.Equal(t, gateway.URL+"/results/project-1/file.jsonl", url)
	assert.True(t, uploaded)

	res, err := http.Get(url)
	require.NoError(t, err)
	data, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "hello\n", string(data))

	_, err = g.Open(ctx, "project-1/missing.jsonl")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGCSStorage_RequiresURLBuilder(t *testing.T) {
	_, err := newGCSStorage(context.Background(), "results", nil, http.DefaultClient)
	assert.Error(t, err)
}
