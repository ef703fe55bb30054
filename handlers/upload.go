package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"

	"kamuy/apperr"
)

const maxAvatarBytes = 10 << 20

// UploadChatImage stores a chat avatar in Cloudinary under
// kamuy/chats/{chatId} and persists the download URL onto the chat
// document. Owner-only; re-uploading overwrites the previous avatar.
func (h *Handler) UploadChatImage(c *gin.Context) {
	callerID, err := h.callerID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	chatID, err := pathID(c, "chatId")
	if err != nil {
		h.fail(c, err)
		return
	}

	if h.cfg.CloudinaryURL == "" {
		h.fail(c, fmt.Errorf("%w: image storage is not configured", apperr.ErrUpstream))
		return
	}

	ctx := c.Request.Context()

	// Ownership is checked before the body is even read so a non-owner
	// cannot stream an upload at all.
	chat, err := h.store.ChatByID(ctx, chatID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if chat.OwnerID != callerID {
		h.fail(c, fmt.Errorf("%w: only the owner may change the chat image", apperr.ErrForbidden))
		return
	}

	file, err := openAvatarUpload(c.Writer, c.Request)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	cld, err := cloudinary.NewFromURL(h.cfg.CloudinaryURL)
	if err != nil {
		h.fail(c, fmt.Errorf("%w: cloudinary configuration: %v", apperr.ErrUpstream, err))
		return
	}

	overwrite := true
	result, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         "kamuy/chats",
		PublicID:       chatID.Hex(),
		Overwrite:      &overwrite,
		Transformation: "c_limit,w_800,h_800,q_auto",
	})
	if err != nil {
		h.fail(c, fmt.Errorf("%w: uploading image: %v", apperr.ErrUpstream, err))
		return
	}

	updated, err := h.store.SetChatImage(ctx, chatID, callerID, result.SecureURL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": updated, "imageUrl": updated.ImageURL})
}

// openAvatarUpload parses the multipart form and returns the image file.
// MaxBytesReader caps the whole request body; ParseMultipartForm alone only
// bounds the in-memory portion and would spool an oversized file to disk.
func openAvatarUpload(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: image exceeds the %d MB limit", apperr.ErrValidation, maxAvatarBytes>>20)
		}
		return nil, fmt.Errorf("%w: malformed form data", apperr.ErrValidation)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: no image file provided", apperr.ErrValidation)
	}
	if header.Size > maxAvatarBytes {
		file.Close()
		return nil, fmt.Errorf("%w: image exceeds the %d MB limit", apperr.ErrValidation, maxAvatarBytes>>20)
	}
	if contentType := header.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
		file.Close()
		return nil, fmt.Errorf("%w: only images are accepted", apperr.ErrValidation)
	}
	return file, nil
}
