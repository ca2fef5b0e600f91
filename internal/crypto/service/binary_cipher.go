package service

import (
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// BinaryCipherService implements BinaryCipher with AES-256-GCM and the "CEFF"
// envelope.
//
// Every payload records the KeyVersion it was sealed with, so a service
// configured with a current key plus previous keys decrypts any payload
// produced by an earlier configuration and ReEncrypt moves it to the current
// version. Failures are returned as distinct errors: see the Err* values in
// the crypto domain package.
type BinaryCipherService struct {
	ring       *cryptoDomain.KeyRing
	deriver    KeyDeriver
	compressor Compressor
	maxSize    int
	compress   bool
}

// BinaryCipherOption configures a BinaryCipherService.
type BinaryCipherOption func(*BinaryCipherService)

// WithDefaultMaxSize sets the default plaintext size limit.
func WithDefaultMaxSize(size int) BinaryCipherOption {
	return func(b *BinaryCipherService) {
		b.maxSize = size
	}
}

// WithDefaultCompression sets whether Encrypt compresses when no per-call option is given.
func WithDefaultCompression(enabled bool) BinaryCipherOption {
	return func(b *BinaryCipherService) {
		b.compress = enabled
	}
}

// WithBinaryKeyDeriver replaces the default HKDF key deriver.
func WithBinaryKeyDeriver(deriver KeyDeriver) BinaryCipherOption {
	return func(b *BinaryCipherService) {
		b.deriver = deriver
	}
}

// WithCompressor replaces the default gzip compressor.
func WithCompressor(compressor Compressor) BinaryCipherOption {
	return func(b *BinaryCipherService) {
		b.compressor = compressor
	}
}

// NewBinaryCipher creates a binary engine backed by ring. It fails fast on a
// missing ring or a default size limit above the hard ceiling.
func NewBinaryCipher(ring *cryptoDomain.KeyRing, opts ...BinaryCipherOption) (*BinaryCipherService, error) {
	if ring == nil || ring.Current() == nil {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}

	b := &BinaryCipherService{
		ring:       ring,
		deriver:    NewKeyDeriver(),
		compressor: NewGzipCompressor(),
		maxSize:    cryptoDomain.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.maxSize <= 0 || b.maxSize > cryptoDomain.HardMaxSize {
		return nil, fmt.Errorf(
			"%w: default max size must be between 1 and %d bytes",
			cryptoDomain.ErrSizeLimitExceeded,
			cryptoDomain.HardMaxSize,
		)
	}

	return b, nil
}

type encryptOptions struct {
	compress *bool
	maxSize  int
}

// EncryptOption overrides the engine defaults for a single Encrypt call.
type EncryptOption func(*encryptOptions)

// WithCompression requests (or suppresses) gzip compression before encryption.
func WithCompression(enabled bool) EncryptOption {
	return func(o *encryptOptions) {
		o.compress = &enabled
	}
}

// WithMaxSize sets the plaintext size limit for one call. Values above the hard
// ceiling are clamped to it.
func WithMaxSize(size int) EncryptOption {
	return func(o *encryptOptions) {
		o.maxSize = size
	}
}

// Encrypt seals data for recordID under the current key.
//
// The size limit is enforced before any key derivation. Compression is kept
// only when it makes the content strictly smaller.
func (b *BinaryCipherService) Encrypt(
	data []byte,
	recordID string,
	metadata cryptoDomain.Metadata,
	opts ...EncryptOption,
) ([]byte, error) {
	o := encryptOptions{maxSize: b.maxSize}
	for _, opt := range opts {
		opt(&o)
	}
	limit := o.maxSize
	if limit <= 0 {
		limit = b.maxSize
	}
	limit = min(limit, cryptoDomain.HardMaxSize)

	if len(data) > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", cryptoDomain.ErrSizeLimitExceeded, len(data), limit)
	}

	rawMetadata, err := encodeMetadata(metadata)
	if err != nil {
		return nil, err
	}

	compress := b.compress
	if o.compress != nil {
		compress = *o.compress
	}

	var flags byte
	content := data
	if compress {
		compressed, err := b.compressor.Compress(data)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(data) {
			content = compressed
			flags |= cryptoDomain.FlagCompressed
		}
	}

	master := b.ring.Current()
	key := b.deriver.DeriveKey(master.Key, cryptoDomain.PurposeEncryption, recordID)
	defer cryptoDomain.Zero(key)

	gcm, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}

	sealed, iv, err := gcm.Encrypt(content, nil)
	if err != nil {
		return nil, err
	}

	split := len(sealed) - cryptoDomain.GCMTagSize
	return writeEnvelope(master.Version, flags, rawMetadata, iv, sealed[split:], sealed[:split]), nil
}

// Decrypt opens payload for recordID with the key matching its embedded version.
// It never falls back to another key.
func (b *BinaryCipherService) Decrypt(payload []byte, recordID string) ([]byte, error) {
	h, ciphertext, err := ParseHeader(payload)
	if err != nil {
		return nil, err
	}
	return b.open(h, ciphertext, recordID)
}

// ExtractMetadata parses only the header. It needs no key and succeeds even when
// the payload's key version is not configured.
func (b *BinaryCipherService) ExtractMetadata(payload []byte) (cryptoDomain.Metadata, error) {
	h, _, err := ParseHeader(payload)
	if err != nil {
		return nil, err
	}
	return h.Metadata, nil
}

// ReEncrypt decrypts payload with whichever configured key matches its version
// and seals it again under the current key, preserving metadata. A nil compress
// keeps the original compression flag.
func (b *BinaryCipherService) ReEncrypt(payload []byte, recordID string, compress *bool) ([]byte, error) {
	h, ciphertext, err := ParseHeader(payload)
	if err != nil {
		return nil, err
	}

	plaintext, err := b.open(h, ciphertext, recordID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	keepCompressed := h.Compressed()
	if compress != nil {
		keepCompressed = *compress
	}

	return b.Encrypt(
		plaintext,
		recordID,
		h.Metadata,
		WithCompression(keepCompressed),
		WithMaxSize(cryptoDomain.HardMaxSize),
	)
}

// PayloadKeyVersion returns the key version embedded in the payload header.
func (b *BinaryCipherService) PayloadKeyVersion(payload []byte) (int, error) {
	h, _, err := ParseHeader(payload)
	if err != nil {
		return 0, err
	}
	return h.KeyVersion, nil
}

// IsCurrentKeyVersion reports whether payload is sealed under the current key version.
func (b *BinaryCipherService) IsCurrentKeyVersion(payload []byte) (bool, error) {
	version, err := b.PayloadKeyVersion(payload)
	if err != nil {
		return false, err
	}
	return version == b.ring.CurrentVersion(), nil
}

// CurrentKeyVersion returns the version written into new payloads.
func (b *BinaryCipherService) CurrentKeyVersion() int {
	return b.ring.CurrentVersion()
}

func (b *BinaryCipherService) open(h *cryptoDomain.PayloadHeader, ciphertext []byte, recordID string) ([]byte, error) {
	master, ok := b.ring.Get(h.KeyVersion)
	if !ok {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnknownKeyVersion, h.KeyVersion)
	}

	key := b.deriver.DeriveKey(master.Key, cryptoDomain.PurposeEncryption, recordID)
	defer cryptoDomain.Zero(key)

	gcm, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := append(ciphertext, h.Tag...)
	content, err := gcm.Decrypt(sealed, h.IV, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	if !h.Compressed() {
		return content, nil
	}

	plaintext, err := b.compressor.Decompress(content, cryptoDomain.HardMaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDecompressionFailed, err)
	}
	return plaintext, nil
}
