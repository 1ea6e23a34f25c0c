package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

const localKeyID = "local"

// EncryptedData is an envelope: the value sealed with a per-value data key,
// and that data key sealed by KMS or by the local master key.
type EncryptedData struct {
	EncryptedValue string `json:"encryptedValue"`
	EncryptedDEK   string `json:"encryptedDek"`
	KeyID          string `json:"keyId"`
	Version        string `json:"version"`
}

// KeyService is the part of the KMS API the manager needs.
type KeyService interface {
	GenerateDataKey(ctx context.Context, in *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, in *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

type DataKey struct {
	Plaintext  []byte
	Ciphertext []byte
	KeyID      string
}

type EncryptionManager struct {
	kms       KeyService
	kmsKeyID  string
	masterKey []byte
	keyCache  sync.Map // encrypted DEK -> plaintext DEK
}

// NewKMSClient builds a KMS client from the default AWS credential chain.
func NewKMSClient(ctx context.Context, cfg *config.Config) (*kms.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.KMS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return kms.NewFromConfig(awsCfg), nil
}

// NewEncryptionManager uses keys for data keys when KMS is enabled and a
// local AES-256 master key otherwise. A missing local key is generated,
// which only suits stores that do not outlive the process.
func NewEncryptionManager(cfg *config.Config, keys KeyService) (*EncryptionManager, error) {
	em := &EncryptionManager{}
	if cfg.KMS.Enabled {
		if keys == nil || cfg.KMS.KeyID == "" {
			return nil, errors.New("encryption: KMS enabled without client or key id")
		}
		em.kms = keys
		em.kmsKeyID = cfg.KMS.KeyID
		return em, nil
	}

	if cfg.KMS.LocalKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.KMS.LocalKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("encryption: LOCAL_ENCRYPTION_KEY must be 32 base64-encoded bytes")
		}
		em.masterKey = key
		return em, nil
	}

	em.masterKey = make([]byte, 32)
	if _, err := rand.Read(em.masterKey); err != nil {
		return nil, fmt.Errorf("encryption: generate local key: %w", err)
	}
	util.Warn("No LOCAL_ENCRYPTION_KEY set, using an ephemeral key")
	return em, nil
}

// GenerateDataKey returns a fresh AES-256 data key and its sealed form.
func (em *EncryptionManager) GenerateDataKey(ctx context.Context) (*DataKey, error) {
	if em.kms != nil {
		out, err := em.kms.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
			KeyId:   aws.String(em.kmsKeyID),
			KeySpec: types.DataKeySpecAes256,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate data key: %w", err)
		}
		return &DataKey{Plaintext: out.Plaintext, Ciphertext: out.CiphertextBlob, KeyID: em.kmsKeyID}, nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	sealed, err := seal(em.masterKey, key)
	if err != nil {
		return nil, err
	}
	return &DataKey{Plaintext: key, Ciphertext: sealed, KeyID: localKeyID}, nil
}

// EncryptField seals plaintext under a new data key.
func (em *EncryptionManager) EncryptField(ctx context.Context, plaintext string) (*EncryptedData, error) {
	dataKey, err := em.GenerateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	ciphertext, err := seal(dataKey.Plaintext, []byte(plaintext))
	if err != nil {
		return nil, err
	}

	encDEK := base64.StdEncoding.EncodeToString(dataKey.Ciphertext)
	em.keyCache.Store(encDEK, dataKey.Plaintext)

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedDEK:   encDEK,
		KeyID:          dataKey.KeyID,
		Version:        "v1",
	}, nil
}

// DecryptField opens an envelope produced by EncryptField.
func (em *EncryptionManager) DecryptField(ctx context.Context, data *EncryptedData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("%w: empty envelope", ErrDecryptionFailed)
	}

	dek, err := em.dataKey(ctx, data)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data.EncryptedValue)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}
	plaintext, err := open(dek, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (em *EncryptionManager) dataKey(ctx context.Context, data *EncryptedData) ([]byte, error) {
	if cached, ok := em.keyCache.Load(data.EncryptedDEK); ok {
		return cached.([]byte), nil
	}

	blob, err := base64.StdEncoding.DecodeString(data.EncryptedDEK)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	var dek []byte
	if data.KeyID == localKeyID {
		if em.masterKey == nil {
			return nil, fmt.Errorf("%w: local key not configured", ErrDecryptionFailed)
		}
		dek, err = open(em.masterKey, blob)
		if err != nil {
			return nil, err
		}
	} else {
		if em.kms == nil {
			return nil, fmt.Errorf("%w: KMS not configured", ErrDecryptionFailed)
		}
		out, err := em.kms.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
		if err != nil {
			util.Error("KMS decrypt failed", zap.String("key_id", data.KeyID), zap.Error(err))
			return nil, fmt.Errorf("%w: failed to decrypt DEK: %v", ErrDecryptionFailed, err)
		}
		dek = out.Plaintext
	}

	em.keyCache.Store(data.EncryptedDEK, dek)
	return dek, nil
}

// GetCacheSize returns the number of cached data keys.
func (em *EncryptionManager) GetCacheSize() int {
	count := 0
	em.keyCache.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
