package service

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// encodeMetadata serializes metadata for the header. A nil map is written as "{}".
func encodeMetadata(metadata cryptoDomain.Metadata) ([]byte, error) {
	if metadata == nil {
		metadata = cryptoDomain.Metadata{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrInvalidPayload, err)
	}
	if len(raw) > cryptoDomain.MaxMetadataSize {
		return nil, fmt.Errorf("%w: %d bytes", cryptoDomain.ErrMetadataTooLarge, len(raw))
	}
	return raw, nil
}

// writeEnvelope assembles a format version 1 payload.
func writeEnvelope(keyVersion int, flags byte, metadata, iv, tag, ciphertext []byte) []byte {
	size := cryptoDomain.FixedHeaderSize + len(metadata) + len(iv) + len(tag) + len(ciphertext)
	buf := bytes.NewBuffer(make([]byte, 0, size))

	buf.WriteString(cryptoDomain.PayloadMagic)
	buf.WriteByte(cryptoDomain.FormatVersion1)
	buf.WriteByte(byte(keyVersion))
	buf.WriteByte(flags)

	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(metadata)))
	buf.Write(length[:])
	buf.Write(metadata)

	buf.Write(iv)
	buf.Write(tag)
	buf.Write(ciphertext)

	return buf.Bytes()
}

// ParseHeader validates and parses the unauthenticated header of a binary payload,
// returning the header and the remaining ciphertext. Magic and format version are
// checked before anything else. The returned IV, tag and ciphertext are copies.
func ParseHeader(payload []byte) (*cryptoDomain.PayloadHeader, []byte, error) {
	magicLen := len(cryptoDomain.PayloadMagic)
	if len(payload) <= magicLen {
		return nil, nil, fmt.Errorf("%w: payload too short", cryptoDomain.ErrInvalidPayload)
	}
	if string(payload[:magicLen]) != cryptoDomain.PayloadMagic {
		return nil, nil, fmt.Errorf("%w: invalid magic bytes", cryptoDomain.ErrInvalidPayload)
	}
	// The version byte decides the rest of the layout, so it is checked before
	// the fixed header length of version 1.
	if v := payload[magicLen]; v != cryptoDomain.FormatVersion1 {
		return nil, nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedFormatVersion, v)
	}
	if len(payload) < cryptoDomain.FixedHeaderSize {
		return nil, nil, fmt.Errorf("%w: payload too short", cryptoDomain.ErrInvalidPayload)
	}

	h := &cryptoDomain.PayloadHeader{
		FormatVersion: payload[4],
		KeyVersion:    int(payload[5]),
		Flags:         payload[6],
	}

	metaLen := int(binary.BigEndian.Uint16(payload[7:9]))
	offset := cryptoDomain.FixedHeaderSize

	needed := metaLen + cryptoDomain.GCMIVSize + cryptoDomain.GCMTagSize
	if len(payload) < offset+needed {
		return nil, nil, fmt.Errorf("%w: payload too short for header", cryptoDomain.ErrInvalidPayload)
	}

	h.Metadata = cryptoDomain.Metadata{}
	if metaLen > 0 {
		dec := json.NewDecoder(bytes.NewReader(payload[offset : offset+metaLen]))
		dec.UseNumber()
		if err := dec.Decode(&h.Metadata); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid metadata: %v", cryptoDomain.ErrInvalidPayload, err)
		}
		if h.Metadata == nil {
			h.Metadata = cryptoDomain.Metadata{}
		}
	}
	offset += metaLen

	h.IV = bytes.Clone(payload[offset : offset+cryptoDomain.GCMIVSize])
	offset += cryptoDomain.GCMIVSize

	h.Tag = bytes.Clone(payload[offset : offset+cryptoDomain.GCMTagSize])
	offset += cryptoDomain.GCMTagSize

	return h, bytes.Clone(payload[offset:]), nil
}
