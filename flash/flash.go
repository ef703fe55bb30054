// Package flash implements one-time user-facing messages: an action sets a
// message into an HTTP-only cookie, the client consumes it exactly once and
// the cookie is cleared.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const (
	CookieName = "kamuy_flash"

	StateSuccess = "success"
	StateError   = "error"

	maxAge = 60 * 5
)

type Message struct {
	State string `json:"state"`
	Text  string `json:"text"`
}

func Success(text string) Message {
	return Message{State: StateSuccess, Text: text}
}

func Error(text string) Message {
	return Message{State: StateError, Text: text}
}

// Set serializes messages into the flash cookie. Later calls within one
// response overwrite earlier ones, mirroring session flash semantics.
func Set(w http.ResponseWriter, secure bool, messages ...Message) {
	data, err := json.Marshal(messages)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop reads pending messages from the request and clears the cookie on the
// response. A missing or malformed cookie yields no messages.
func Pop(w http.ResponseWriter, r *http.Request, secure bool) []Message {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	clearCookie(w, secure)

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil
	}
	return messages
}

func clearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
