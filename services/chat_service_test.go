package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/mirror"
)

var testPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeAssistant struct {
	reply      *ai.ChatReply
	err        error
	message    string
	attachment *ai.ChatImage
}

func (f *fakeAssistant) Reply(_ context.Context, message string, attachment *ai.ChatImage) (*ai.ChatReply, error) {
	f.message, f.attachment = message, attachment
	if f.err != nil {
		return nil, f.err
	}
	out := *f.reply
	return &out, nil
}

func newChatFixture(t *testing.T) (*ChatService, *fakeAssistant, *fakeMirror, *mirror.LocalStore) {
	t.Helper()
	store, err := mirror.NewLocalStore(t.TempDir(), "/uploads", "http://localhost:8080")
	require.NoError(t, err)
	assistant := &fakeAssistant{reply: &ai.ChatReply{Response: "hi"}}
	assets := &fakeMirror{}
	svc := NewChatService(assistant, store, assets)
	svc.now = func() time.Time { return time.UnixMilli(1714557600000) }
	return svc, assistant, assets, store
}

func TestChatUploadStoresImage(t *testing.T) {
	svc, _, _, store := newChatFixture(t)
	ctx := context.Background()

	url, err := svc.Upload(ctx, bytes.NewReader(testPNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/1714557600000-"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	name := url[strings.LastIndex(url, "/")+1:]
	ok, err := store.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestChatUploadRejectsNonImages(t *testing.T) {
	svc, _, _, _ := newChatFixture(t)

	_, err := svc.Upload(context.Background(), strings.NewReader("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = svc.Upload(context.Background(), bytes.NewReader(make([]byte, MaxChatUploadBytes+1)))
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestChatSendWithUploadedAttachment(t *testing.T) {
	svc, assistant, _, _ := newChatFixture(t)
	ctx := context.Background()

	url, err := svc.Upload(ctx, bytes.NewReader(testPNG))
	require.NoError(t, err)

	reply, err := svc.Send(ctx, primitive.NewObjectID(), "caption this", url)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Response)
	assert.Nil(t, reply.ImageURL)

	assert.Equal(t, "caption this", assistant.message)
	require.NotNil(t, assistant.attachment)
	assert.Equal(t, "image/png", assistant.attachment.MIMEType)
	assert.Equal(t, testPNG, assistant.attachment.Data)
}

func TestChatSendUnknownAttachment(t *testing.T) {
	svc, assistant, _, _ := newChatFixture(t)

	_, err := svc.Send(context.Background(), primitive.NewObjectID(), "hi", "/uploads/nope.png")
	assert.ErrorIs(t, err, ErrAttachmentNotFound)
	assert.Empty(t, assistant.message, "assistant not called")
}

func TestChatSendMirrorsGeneratedImage(t *testing.T) {
	svc, assistant, assets, _ := newChatFixture(t)
	upstream := "https://oaidalle.example/img-1.png"
	assistant.reply = &ai.ChatReply{Response: "image: bread", ImageURL: &upstream}

	reply, err := svc.Send(context.Background(), primitive.NewObjectID(), "idea?", "")
	require.NoError(t, err)
	assert.Nil(t, assistant.attachment)
	assert.Equal(t, []string{upstream}, assets.calls)
	require.NotNil(t, reply.ImageURL)
	assert.Equal(t, "/uploads/mirrored.png", *reply.ImageURL)

	assets.err = errors.New("cdn down")
	reply, err = svc.Send(context.Background(), primitive.NewObjectID(), "idea?", "")
	require.NoError(t, err)
	require.NotNil(t, reply.ImageURL)
	assert.Equal(t, upstream, *reply.ImageURL)
}

func TestChatSendPropagatesAssistantError(t *testing.T) {
	svc, assistant, _, _ := newChatFixture(t)
	assistant.err = ai.ErrEmptyChat

	_, err := svc.Send(context.Background(), primitive.NewObjectID(), "", "")
	assert.ErrorIs(t, err, ai.ErrEmptyChat)
}
