package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = c.initKMSService()
	})
	return c.kmsService
}

// KeyRing returns the master key ring loaded from configuration.
func (c *Container) KeyRing() (*cryptoDomain.KeyRing, error) {
	var err error
	c.keyRingInit.Do(func() {
		c.keyRing, err = c.initKeyRing()
		if err != nil {
			c.initErrors["keyRing"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRing"]; exists {
		return nil, storedErr
	}
	return c.keyRing, nil
}

// StringCipher returns the string field engine.
func (c *Container) StringCipher() (cryptoService.StringCipher, error) {
	var err error
	c.stringCipherInit.Do(func() {
		c.stringCipher, err = c.initStringCipher()
		if err != nil {
			c.initErrors["stringCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stringCipher"]; exists {
		return nil, storedErr
	}
	return c.stringCipher, nil
}

// BinaryCipher returns the binary field engine.
func (c *Container) BinaryCipher() (cryptoService.BinaryCipher, error) {
	var err error
	c.binaryCipherInit.Do(func() {
		c.binaryCipher, err = c.initBinaryCipher()
		if err != nil {
			c.initErrors["binaryCipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["binaryCipher"]; exists {
		return nil, storedErr
	}
	return c.binaryCipher, nil
}

// initKMSService creates the KMS service for unwrapping master keys.
func (c *Container) initKMSService() cryptoService.KMSService {
	return cryptoService.NewKMSService()
}

// initKeyRing loads the key ring, unwrapping keys through the KMS when a key URI is configured.
func (c *Container) initKeyRing() (*cryptoDomain.KeyRing, error) {
	ctx := context.Background()

	var keeper cryptoDomain.KMSKeeper
	if c.config.KMSKeyURI != "" {
		opened, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open kms keeper: %w", err)
		}
		defer func() { _ = opened.Close() }()
		keeper = opened
	}

	ring, err := cryptoDomain.LoadKeyRing(ctx, c.config.KeyRingConfig(), keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load key ring: %w", err)
	}

	c.Logger().Info("key ring loaded",
		"current_version", ring.CurrentVersion(),
		"versions", ring.Versions(),
		"kms_provider", c.config.KMSProvider,
	)
	return ring, nil
}

// initStringCipher creates the string engine with the configured hashing options.
func (c *Container) initStringCipher() (cryptoService.StringCipher, error) {
	ring, err := c.KeyRing()
	if err != nil {
		return nil, fmt.Errorf("failed to get key ring for string cipher: %w", err)
	}

	stringCipher, err := cryptoService.NewStringCipher(
		ring,
		cryptoService.WithPepper(c.config.HashPepper),
		cryptoService.WithSecureHash(c.config.SecureHash),
		cryptoService.WithLegacyKeyVersion(c.config.StringLegacyKeyVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create string cipher: %w", err)
	}
	return stringCipher, nil
}

// initBinaryCipher creates the binary engine with the configured size and compression defaults.
func (c *Container) initBinaryCipher() (cryptoService.BinaryCipher, error) {
	ring, err := c.KeyRing()
	if err != nil {
		return nil, fmt.Errorf("failed to get key ring for binary cipher: %w", err)
	}

	binaryCipher, err := cryptoService.NewBinaryCipher(
		ring,
		cryptoService.WithDefaultMaxSize(c.config.BinaryMaxSize),
		cryptoService.WithDefaultCompression(c.config.BinaryCompress),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create binary cipher: %w", err)
	}
	return binaryCipher, nil
}
