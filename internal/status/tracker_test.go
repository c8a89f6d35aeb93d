package status

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat-be/internal/config"
	"paperchat-be/internal/ingest"
	"paperchat-be/internal/registry"
	"paperchat-be/pkg/chunker"
	"paperchat-be/pkg/docstore"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type passStore struct{}

func (passStore) Acquire(_ context.Context, origin docstore.Origin) ([]byte, error) {
	return origin.Upload, nil
}

type slowExtractor struct {
	delay time.Duration
}

func (e slowExtractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	select {
	case <-time.After(e.delay):
		return string(pdf), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type unitProvider struct{}

func (unitProvider) GenerateBatch(_ context.Context, texts []string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTracker(t *testing.T, delay time.Duration) (*Tracker, *registry.Registry, *ingest.Pipeline) {
	t.Helper()
	reg := registry.New(time.Hour, time.Hour, nopLogger{})
	worker := chunker.NewWorker(unitProvider{}, 1500, 200, 16, 1, 0)
	cfg := config.IngestConfig{
		MaxChars:       48000,
		FetchTimeout:   time.Second,
		ExtractTimeout: 5 * time.Second,
		Workers:        4,
	}

	p, err := ingest.NewPipeline(reg, passStore{}, slowExtractor{delay: delay}, worker, nil, nil, nopLogger{}, cfg)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(p.Close)

	return NewTracker(reg, p), reg, p
}

func TestStatus_IdleSession(t *testing.T) {
	tracker, reg, _ := newTracker(t, 0)
	h := reg.Create()

	snap, err := tracker.Status(h.Id())
	require.NoError(t, err)
	assert.False(t, snap.Processing)
	assert.Empty(t, snap.CurrentDocumentName)
	assert.Zero(t, snap.QueueDepth)
}

func TestStatus_QueueDepthExcludesInFlightJob(t *testing.T) {
	tracker, reg, p := newTracker(t, 300*time.Millisecond)
	h := reg.Create()

	_, err := p.Ingest(context.Background(), h.Id(), docstore.Origin{Name: "a.pdf", Upload: []byte("first")})
	require.NoError(t, err)
	_, err = p.Ingest(context.Background(), h.Id(), docstore.Origin{Name: "b.pdf", Upload: []byte("second")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := tracker.Status(h.Id())
		if err != nil {
			return false
		}
		return snap.Processing && snap.CurrentDocumentName == "a.pdf" && snap.QueueDepth == 1
	}, 2*time.Second, 5*time.Millisecond, "in-flight job must not count toward queue depth")

	require.Eventually(t, func() bool {
		snap, err := tracker.Status(h.Id())
		if err != nil {
			return false
		}
		return !snap.Processing && snap.QueueDepth == 0
	}, 3*time.Second, 5*time.Millisecond)
}

func TestStatus_UnknownSessionErrors(t *testing.T) {
	tracker, _, _ := newTracker(t, 0)

	_, err := tracker.Status(uuid.New())
	assert.Error(t, err)
}
