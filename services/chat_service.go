package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"social-content-platform/internal/ai"
	"social-content-platform/internal/logger"
	"social-content-platform/internal/mirror"
	"social-content-platform/utils"
)

// MaxChatUploadBytes caps an uploaded chat image.
const MaxChatUploadBytes = 10 << 20

var (
	ErrUnsupportedImage   = errors.New("unsupported image type")
	ErrUploadTooLarge     = errors.New("image too large")
	ErrAttachmentNotFound = errors.New("attached image not found")
)

type ChatAssistant interface {
	Reply(ctx context.Context, message string, attachment *ai.ChatImage) (*ai.ChatReply, error)
}

// ChatService backs the chat assistant: image uploads land in the asset
// store, and images the assistant generates are mirrored there too.
type ChatService struct {
	assistant ChatAssistant
	uploads   mirror.Store
	mirror    AssetMirror
	now       func() time.Time
}

func NewChatService(assistant ChatAssistant, uploads mirror.Store, assets AssetMirror) *ChatService {
	return &ChatService{assistant: assistant, uploads: uploads, mirror: assets, now: time.Now}
}

// Send answers message, optionally about an image uploaded earlier.
func (s *ChatService) Send(ctx context.Context, userID primitive.ObjectID, message, imageURL string) (*ai.ChatReply, error) {
	var attachment *ai.ChatImage
	if strings.TrimSpace(imageURL) != "" {
		img, err := s.loadAttachment(ctx, imageURL)
		if err != nil {
			return nil, err
		}
		attachment = img
	}

	reply, err := s.assistant.Reply(ctx, message, attachment)
	if err != nil {
		return nil, err
	}

	// Generated image URLs expire upstream; keep the original one if mirroring fails.
	if reply.ImageURL != nil && s.mirror != nil {
		if ref, err := s.mirror.Mirror(ctx, *reply.ImageURL); err != nil {
			logger.Warn("Chat image mirror failed, returning upstream url", "error", err)
		} else {
			reply.ImageURL = &ref
		}
	}

	logger.Info("Chat answered",
		"user_id", userID.Hex(),
		"attachment", attachment != nil,
		"image", reply.ImageURL != nil,
	)
	return reply, nil
}

// Upload stores an image and returns its public URL. The stored name is
// derived from the upload time and the detected type, never from client input.
func (s *ChatService) Upload(ctx context.Context, r io.Reader) (string, error) {
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	mt := mimetype.Detect(data)
	if !utils.IsValidImageType(mt.String()) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}

	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + uuid.NewString()[:8] + mt.Extension()
	if err := s.uploads.Save(ctx, name, mt.String(), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return s.uploads.URL(name), nil
}

func (s *ChatService) loadAttachment(ctx context.Context, imageURL string) (*ai.ChatImage, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrAttachmentNotFound, imageURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return nil, fmt.Errorf("%w: %q", ErrAttachmentNotFound, imageURL)
	}

	rc, err := s.uploads.Open(ctx, name)
	if errors.Is(err, mirror.ErrAssetNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAttachmentNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readLimited(rc)
	if err != nil {
		return nil, err
	}
	mt := mimetype.Detect(data)
	if !utils.IsValidImageType(mt.String()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}
	return &ai.ChatImage{MIMEType: mt.String(), Data: data}, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxChatUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxChatUploadBytes {
		return nil, ErrUploadTooLarge
	}
	return data, nil
}
