package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"kamuy/apperr"
)

func multipartImageRequest(t *testing.T, field, contentType string, size int) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="avatar.png"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("creating form part: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{0xAB}, size)); err != nil {
		t.Fatalf("writing form part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing form writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chats/abc/image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestOpenAvatarUpload(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		contentType string
		size        int
		expectErr   bool
	}{
		{
			name:        "small image accepted",
			field:       "image",
			contentType: "image/png",
			size:        64 << 10,
		},
		{
			name:        "oversized body rejected",
			field:       "image",
			contentType: "image/png",
			size:        12 << 20,
			expectErr:   true,
		},
		{
			name:        "non-image content type rejected",
			field:       "image",
			contentType: "application/zip",
			size:        64 << 10,
			expectErr:   true,
		},
		{
			name:        "missing image field rejected",
			field:       "attachment",
			contentType: "image/png",
			size:        64 << 10,
			expectErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartImageRequest(t, tt.field, tt.contentType, tt.size)
			rec := httptest.NewRecorder()

			file, err := openAvatarUpload(rec, req)
			if tt.expectErr {
				if err == nil {
					file.Close()
					t.Fatal("expected an error")
				}
				if !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("openAvatarUpload() = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("openAvatarUpload() = %v", err)
			}
			file.Close()
		})
	}
}

func TestOpenAvatarUploadNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/chats/abc/image", bytes.NewBufferString("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	if _, err := openAvatarUpload(rec, req); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("openAvatarUpload() = %v, want validation error", err)
	}
}
