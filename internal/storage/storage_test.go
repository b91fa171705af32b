package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	data := pngBytes(t, 12, 7)

	info, err := ValidateImage(data, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.MimeType)
	assert.Equal(t, ".png", info.Extension())
	assert.Equal(t, 12, info.Width)
	assert.Equal(t, 7, info.Height)

	_, err = ValidateImage(nil, 1<<20)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = ValidateImage(data, 10)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = ValidateImage([]byte("%PDF-1.7 not an image"), 1<<20)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestImageInfo_ExtensionForJPEG(t *testing.T) {
	assert.Equal(t, ".jpg", (&ImageInfo{Format: "jpeg"}).Extension())
	assert.Equal(t, ".webp", (&ImageInfo{Format: "webp"}).Extension())
}

func TestSafeBase(t *testing.T) {
	assert.Equal(t, "Screenshot_2026-01-03", safeBase("../../Screenshot_2026-01-03.png"))
	assert.Equal(t, "shot", safeBase(`C:\Users\me\sh ot.jpg`))
	assert.Equal(t, "", safeBase("微信图片.png"))
}

func TestLocalImageStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalImageStore(dir)
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC) }

	data := pngBytes(t, 2, 2)
	info, err := ValidateImage(data, 0)
	require.NoError(t, err)

	path, err := store.Save(context.Background(), "review one.png", info, data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, dir))
	assert.Contains(t, path, "2026")
	assert.True(t, strings.HasSuffix(path, "-reviewone.png"))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestLocalImageStore_CanceledContext(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.png", &ImageInfo{Format: "png"}, []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage_Save(t *testing.T) {
	fake := &fakeS3{}
	store := &S3Storage{client: fake, bucket: "reviews", region: "ap-northeast-2", now: time.Now}
	info := &ImageInfo{MimeType: "image/jpeg", Format: "jpeg"}

	url, err := store.Save(context.Background(), "a.jpg", info, []byte("jpegdata"))
	require.NoError(t, err)

	assert.Equal(t, "reviews", *fake.input.Bucket)
	assert.Equal(t, "image/jpeg", *fake.input.ContentType)
	assert.Equal(t, []byte("jpegdata"), fake.body)
	assert.True(t, strings.HasPrefix(url, "https://reviews.s3.ap-northeast-2.amazonaws.com/screenshots/"))
	assert.True(t, strings.HasSuffix(url, "-a.jpg"))

	store.baseURL = "https://cdn.example.com"
	url, err = store.Save(context.Background(), "a.jpg", info, []byte("jpegdata"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/screenshots/"))

	fake.err = errors.New("access denied")
	_, err = store.Save(context.Background(), "a.jpg", info, []byte("jpegdata"))
	assert.ErrorIs(t, err, fake.err)
}
