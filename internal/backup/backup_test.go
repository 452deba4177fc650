package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string]string
	err     error
}

func (m *memUploader) Upload(_ context.Context, key string, body io.Reader) error {
	if m.err != nil {
		return m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = string(b)
	return nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedData(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(`[{"id":"u-1"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "criteria.json"), []byte(`[]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json.lock"), nil, 0o644))
	return dir
}

func TestRun_CopiesJSONFiles(t *testing.T) {
	data := seedData(t)
	backups := t.TempDir()
	up := &memUploader{objects: map[string]string{}}

	r := New(data, backups, up, quiet())
	r.now = func() time.Time { return time.Date(2024, 6, 1, 12, 30, 45, 0, time.Local) }

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(backups, "backup_20240601_123045"), res.Dir)
	assert.Equal(t, []string{"criteria.json", "users.json"}, res.Files)
	assert.Equal(t, 2, res.Uploaded)

	b, err := os.ReadFile(filepath.Join(res.Dir, "users.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u-1"}]`, string(b))

	_, err = os.Stat(filepath.Join(res.Dir, "users.json.lock"))
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, `[{"id":"u-1"}]`, up.objects["backup_20240601_123045/users.json"])
}

func TestRun_NoDataFiles(t *testing.T) {
	res, err := New(t.TempDir(), t.TempDir(), nil, quiet()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}

func TestRun_UploadFailure(t *testing.T) {
	up := &memUploader{err: errors.New("bucket gone")}

	_, err := New(seedData(t), t.TempDir(), up, quiet()).Run(context.Background())
	assert.ErrorContains(t, err, "bucket gone")
}

type fakePutObject struct {
	in *s3.PutObjectInput
}

func (f *fakePutObject) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	return &s3.PutObjectOutput{}, nil
}

func TestS3Uploader_Key(t *testing.T) {
	fake := &fakePutObject{}
	u := &S3Uploader{client: fake, bucket: "b", prefix: "perfeval"}

	require.NoError(t, u.Upload(context.Background(), "backup_x/users.json", nil))
	assert.Equal(t, "b", *fake.in.Bucket)
	assert.Equal(t, "perfeval/backup_x/users.json", *fake.in.Key)
}
