package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// pngOfWidth encodes a tiny image; the width identifies it in fakes.
func pngOfWidth(t *testing.T, w int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, 1))))
	return buf.Bytes()
}

type fakeExtractor struct {
	byWidth map[int]func() (*model.ExtractedReview, error)
	delay   time.Duration

	active    int32
	maxActive int32
}

func (f *fakeExtractor) ExtractReview(ctx context.Context, data []byte, mimeType string) (*model.ExtractedReview, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		m := atomic.LoadInt32(&f.maxActive)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxActive, m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if fn, ok := f.byWidth[cfg.Width]; ok {
		return fn()
	}
	return &model.ExtractedReview{}, nil
}

func (f *fakeExtractor) StreamReport(ctx context.Context, input ReportInput, onChunk func(string) error) (string, error) {
	return "", errors.New("not used")
}

type memoryImageStore struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *memoryImageStore) Save(ctx context.Context, filename string, info *storage.ImageInfo, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, filename)
	return "mem://" + filename, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (p *recordingPublisher) Publish(batchID string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(ProgressEvent))
	return nil
}

func reviewBy(user, content string) func() (*model.ExtractedReview, error) {
	return func() (*model.ExtractedReview, error) {
		return &model.ExtractedReview{UserName: strPtr(user), Content: strPtr(content), ReviewDate: strPtr("12/30")}, nil
	}
}

func TestIngestService_ExtractBatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ai := &fakeExtractor{byWidth: map[int]func() (*model.ExtractedReview, error){
		1: reviewBy("Amy", "Great tea"),
		2: reviewBy("Ben", "Too sweet"),
		3: func() (*model.ExtractedReview, error) { return nil, errors.New("model unavailable") },
		4: reviewBy("Amy", "Great tea"),
	}}
	images := &memoryImageStore{}
	pub := &recordingPublisher{}
	svc := NewIngestService(ai, images, pub, 2, 1<<20, nil)

	batch, err := svc.ExtractBatch(context.Background(), "batch-1", []ImageUpload{
		{Filename: "a.png", Data: pngOfWidth(t, 1)},
		{Filename: "b.png", Data: pngOfWidth(t, 2)},
		{Filename: "c.png", Data: pngOfWidth(t, 3)},
		{Filename: "d.png", Data: pngOfWidth(t, 4)},
		{Filename: "notes.txt", Data: []byte("not an image")},
	})
	require.NoError(t, err)

	assert.Equal(t, "batch-1", batch.BatchID)
	assert.Len(t, batch.Drafts, 2)
	assert.Len(t, batch.Failures, 2)
	require.Len(t, batch.Duplicates, 1)

	failed := map[string]string{}
	for _, f := range batch.Failures {
		failed[f.Filename] = f.Error
	}
	assert.Contains(t, failed["c.png"], "model unavailable")
	assert.Contains(t, failed["notes.txt"], storage.ErrUnsupportedImage.Error())

	// a and d carry the same review; whichever finished first is kept
	dup := batch.Duplicates[0]
	assert.ElementsMatch(t, []string{"a.png", "d.png"}, []string{dup.Filename, dup.DuplicateOf})
	for _, d := range batch.Drafts {
		assert.Equal(t, "mem://"+d.SourceFilename, d.ImagePath)
	}

	assert.Len(t, images.saved, 4)

	require.Len(t, pub.events, 6)
	for i, ev := range pub.events[:5] {
		assert.Equal(t, i+1, ev.Completed)
		assert.Equal(t, 5, ev.Total)
	}
	last := pub.events[5]
	assert.Equal(t, EventBatchDone, last.Type)
	assert.Equal(t, 5, last.Completed)
}

func TestIngestService_RespectsWorkerLimit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ai := &fakeExtractor{delay: 20 * time.Millisecond}
	svc := NewIngestService(ai, &memoryImageStore{}, nil, 3, 1<<20, nil)

	uploads := make([]ImageUpload, 10)
	for i := range uploads {
		uploads[i] = ImageUpload{Filename: "x.png", Data: pngOfWidth(t, i+1)}
	}

	batch, err := svc.ExtractBatch(context.Background(), "", uploads)
	require.NoError(t, err)

	assert.Len(t, batch.Drafts, 10)
	assert.Empty(t, batch.Failures)
	assert.LessOrEqual(t, atomic.LoadInt32(&ai.maxActive), int32(3))
	assert.Greater(t, atomic.LoadInt32(&ai.maxActive), int32(1))
}

func TestIngestService_StorageFailureIsPerImage(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	svc := NewIngestService(&fakeExtractor{}, &memoryImageStore{err: errors.New("disk full")}, nil, 2, 1<<20, nil)

	batch, err := svc.ExtractBatch(context.Background(), "b", []ImageUpload{
		{Filename: "a.png", Data: pngOfWidth(t, 1)},
		{Filename: "b.png", Data: pngOfWidth(t, 2)},
	})
	require.NoError(t, err)
	assert.Empty(t, batch.Drafts)
	assert.Len(t, batch.Failures, 2)
}

func TestIngestService_NoImages(t *testing.T) {
	svc := NewIngestService(&fakeExtractor{}, &memoryImageStore{}, nil, 2, 1<<20, nil)

	_, err := svc.ExtractBatch(context.Background(), "b", nil)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestIngestService_CanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewIngestService(&fakeExtractor{}, &memoryImageStore{}, nil, 2, 1<<20, nil)

	_, err := svc.ExtractBatch(ctx, "b", []ImageUpload{{Filename: "a.png", Data: pngOfWidth(t, 1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupeDrafts_IgnoresIncompletePairs(t *testing.T) {
	drafts := []model.ExtractedReview{
		{UserName: strPtr("Amy"), SourceFilename: "a"},
		{UserName: strPtr("Amy"), SourceFilename: "b"},
		{UserName: strPtr("Amy"), Content: strPtr("x"), SourceFilename: "c"},
		{UserName: strPtr("Amy"), Content: strPtr("x"), SourceFilename: "d"},
	}

	kept, dups := dedupeDrafts(drafts)

	assert.Len(t, kept, 3)
	require.Len(t, dups, 1)
	assert.Equal(t, DuplicateDraft{Filename: "d", DuplicateOf: "c"}, dups[0])
}
