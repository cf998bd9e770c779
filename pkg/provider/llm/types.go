package llm

import "strings"

// Message represents a single turn in a conversation sent to a provider.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message. Empty when the message
	// carries only an image reference.
	Content string

	// ImageURL is an image reference: either a remote URL or an inline
	// data URI ("data:image/png;base64,..."). When set, providers that
	// support vision input must deliver it as an image content part with
	// the URL string unchanged. Providers without vision support must
	// reject the request rather than silently degrade it to text.
	ImageURL string
}

// UserText returns a user-role text message.
func UserText(content string) Message {
	return Message{Role: "user", Content: content}
}

// UserImage returns a user-role message carrying an image reference.
func UserImage(url string) Message {
	return Message{Role: "user", ImageURL: url}
}

// SystemText returns a system-role text message.
func SystemText(content string) Message {
	return Message{Role: "system", Content: content}
}

// IsImageData reports whether s is inline image content encoded as a data
// URI. Knowledge-base items and uploaded file contents are stored as opaque
// strings; this prefix check is how image items are told apart from text.
func IsImageData(s string) bool {
	return strings.HasPrefix(s, "data:image")
}
