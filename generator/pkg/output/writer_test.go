package output

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	viewgentesting "github.com/malbeclabs/viewgen/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestViewgen_Output_DirWriter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(t.Context(), viewgentesting.NewLogger(), dir)
	require.NoError(t, err)
	require.IsType(t, &DirWriter{}, w)

	require.NoError(t, w.WriteView(t.Context(), "fenix", testView()))

	data, err := os.ReadFile(filepath.Join(dir, "fenix", "views", "metrics.view.lkml"))
	require.NoError(t, err)
	require.Contains(t, string(data), "view: metrics {")

	_, err = NewDirWriter("")
	require.Error(t, err)
}

func TestViewgen_Output_S3Writer(t *testing.T) {
	t.Parallel()

	client := &fakeS3{}
	w, err := NewS3Writer(t.Context(), S3WriterConfig{
		Logger: viewgentesting.NewLogger(),
		Bucket: "lookml",
		Prefix: "generated",
		Client: client,
	})
	require.NoError(t, err)

	require.NoError(t, w.WriteView(t.Context(), "fenix", testView()))
	require.Contains(t, client.objects, "lookml/generated/fenix/views/metrics.view.lkml")
	require.Contains(t, client.objects["lookml/generated/fenix/views/metrics.view.lkml"], "view: metrics {")

	_, err = NewS3Writer(t.Context(), S3WriterConfig{Logger: viewgentesting.NewLogger()})
	require.ErrorContains(t, err, "bucket is required")
}

func TestViewgen_Output_ViewPath(t *testing.T) {
	t.Parallel()
	require.Equal(t, "fenix/views/baseline.view.lkml", ViewPath("fenix", "baseline"))
}
