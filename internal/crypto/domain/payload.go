package domain

// StringPayload is the JSON document carried inside a string envelope.
// Byte slices are base64-encoded by encoding/json.
//
// KeyVersion is omitted by legacy producers; such payloads are attributed to the
// engine's configured legacy version.
type StringPayload struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
	KeyVersion int    `json:"kv,omitempty"`
}

// Metadata is the plaintext JSON object stored in a binary payload header.
// It is NOT encrypted and must never contain sensitive data. Conventional keys
// are mimeType, originalName and originalSize.
//
// Metadata read back from a payload holds JSON values: numbers come back as
// json.Number with their exact text, nested objects as map[string]any. A map
// written with Go ints therefore round-trips by value, not by Go type.
type Metadata map[string]any

// Conventional metadata keys.
const (
	MetadataMimeType     = "mimeType"
	MetadataOriginalName = "originalName"
	MetadataOriginalSize = "originalSize"
)

// PayloadHeader is the parsed, unauthenticated header of a binary payload.
type PayloadHeader struct {
	FormatVersion byte
	KeyVersion    int
	Flags         byte
	Metadata      Metadata
	IV            []byte
	Tag           []byte
}

// Compressed reports whether the content was gzip-compressed before encryption.
func (h *PayloadHeader) Compressed() bool {
	return h.Flags&FlagCompressed != 0
}
