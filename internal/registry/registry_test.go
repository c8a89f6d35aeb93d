package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat-be/internal/entity"
	"paperchat-be/internal/pkg/serverutils"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestRegistry() *Registry {
	return New(time.Hour, time.Hour, nopLogger{})
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	got, err := r.Get(h.Id())
	require.NoError(t, err)
	assert.Equal(t, h.Id(), got.Id())
}

func TestGetUnknownIsNotFound(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Get(uuid.New())
	require.Error(t, err)
	appErr, ok := serverutils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, serverutils.CodeNotFound, appErr.Code)
}

func TestEndedSessionIsGone(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	require.NoError(t, r.End(h.Id()))

	_, err := r.Get(h.Id())
	require.Error(t, err)
	appErr, ok := serverutils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, serverutils.CodeGone, appErr.Code)
}

func TestEndCancelsSessionContext(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	ctx := h.Context()
	require.NoError(t, r.End(h.Id()))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("session context not cancelled on End")
	}
}

func TestMessagesAreAppendOnlyAndOrdered(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	for i, content := range []string{"first", "second", "third"} {
		h.AppendMessage(&entity.ChatMessage{
			Id:        uuid.New(),
			Role:      entity.ChatMessageRoleUser,
			Content:   content,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestInFlightMessageGrowsUntilFinalized(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	msgId := uuid.New()
	h.AppendMessage(&entity.ChatMessage{Id: msgId, Role: entity.ChatMessageRoleAssistant})

	h.AppendContent(msgId, "Hello")
	h.AppendContent(msgId, ", world")
	h.FinalizeMessage(msgId)
	h.AppendContent(msgId, " IGNORED")

	msgs := h.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello, world", msgs[0].Content)
	assert.True(t, msgs[0].Done)
}

func TestRemoveDocumentDropsRefAndChunks(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	docId := uuid.New()
	h.AttachDocument(&entity.DocumentRef{Id: docId, SessionId: h.Id(), Status: entity.DocumentStatusReady})

	require.True(t, h.RemoveDocument(docId))
	assert.Empty(t, h.Documents())
	assert.False(t, h.RemoveDocument(docId), "second removal must report missing")
}

func TestReadyDocumentsFiltersNonReady(t *testing.T) {
	r := newTestRegistry()
	h := r.Create()

	h.AttachDocument(&entity.DocumentRef{Id: uuid.New(), Status: entity.DocumentStatusReady})
	h.AttachDocument(&entity.DocumentRef{Id: uuid.New(), Status: entity.DocumentStatusEmbedding})
	h.AttachDocument(&entity.DocumentRef{Id: uuid.New(), Status: entity.DocumentStatusFailed})

	assert.Len(t, h.ReadyDocuments(), 1)
}

func TestDocumentStatusNeverRegresses(t *testing.T) {
	d := &entity.DocumentRef{Status: entity.DocumentStatusQueued}

	require.True(t, d.Advance(entity.DocumentStatusExtracting))
	require.True(t, d.Advance(entity.DocumentStatusEmbedding))
	assert.False(t, d.Advance(entity.DocumentStatusExtracting), "regression must be rejected")
	require.True(t, d.Advance(entity.DocumentStatusReady))
	assert.False(t, d.Fail("late"), "terminal ready must not divert to failed")
	assert.Equal(t, entity.DocumentStatusReady, d.Status)

	f := &entity.DocumentRef{Status: entity.DocumentStatusExtracting}
	require.True(t, f.Fail("extract-error"))
	assert.False(t, f.Advance(entity.DocumentStatusEmbedding), "failed is terminal")
	assert.Equal(t, "extract-error", f.FailReason)
}
