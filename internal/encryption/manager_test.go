package encryption

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
)

func localConfig(key string) *config.Config {
	return &config.Config{KMS: config.KMSConfig{LocalKey: key}}
}

func TestLocalEnvelope_RoundTrip(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	em, err := NewEncryptionManager(localConfig(key), nil)
	require.NoError(t, err)

	ctx := context.Background()
	env, err := em.EncryptField(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "local", env.KeyID)
	assert.NotContains(t, env.EncryptedValue, "ana@example.com")

	got, err := em.DecryptField(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got)

	// A second manager with the same key opens the envelope without the cache.
	fresh, err := NewEncryptionManager(localConfig(key), nil)
	require.NoError(t, err)
	got, err = fresh.DecryptField(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got)
	assert.Equal(t, 1, fresh.GetCacheSize())
}

func TestLocalEnvelope_WrongKeyFails(t *testing.T) {
	ctx := context.Background()
	a, err := NewEncryptionManager(localConfig(""), nil)
	require.NoError(t, err)
	b, err := NewEncryptionManager(localConfig(""), nil)
	require.NoError(t, err)

	env, err := a.EncryptField(ctx, "secret")
	require.NoError(t, err)

	_, err = b.DecryptField(ctx, env)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestNewEncryptionManager_BadLocalKey(t *testing.T) {
	_, err := NewEncryptionManager(localConfig("c2hvcnQ="), nil)
	assert.Error(t, err)
}

type fakeKMS struct {
	master []byte
	calls  int
}

func (f *fakeKMS) GenerateDataKey(_ context.Context, in *kms.GenerateDataKeyInput, _ ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error) {
	f.calls++
	dek := make([]byte, 32)
	dek[0] = byte(f.calls)
	blob, err := seal(f.master, dek)
	if err != nil {
		return nil, err
	}
	return &kms.GenerateDataKeyOutput{Plaintext: dek, CiphertextBlob: blob, KeyId: in.KeyId}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.calls++
	dek, err := open(f.master, in.CiphertextBlob)
	if err != nil {
		return nil, err
	}
	return &kms.DecryptOutput{Plaintext: dek}, nil
}

func TestKMSEnvelope_RoundTrip(t *testing.T) {
	fake := &fakeKMS{master: make([]byte, 32)}
	cfg := &config.Config{KMS: config.KMSConfig{Enabled: true, KeyID: "alias/jaml"}}

	writer, err := NewEncryptionManager(cfg, fake)
	require.NoError(t, err)
	reader, err := NewEncryptionManager(cfg, fake)
	require.NoError(t, err)

	ctx := context.Background()
	env, err := writer.EncryptField(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alias/jaml", env.KeyID)

	got, err := reader.DecryptField(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got)

	before := fake.calls
	_, err = reader.DecryptField(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, before, fake.calls, "cached data key must not hit KMS again")
}

func TestNewEncryptionManager_KMSNeedsClient(t *testing.T) {
	_, err := NewEncryptionManager(&config.Config{KMS: config.KMSConfig{Enabled: true, KeyID: "k"}}, nil)
	assert.Error(t, err)
}
