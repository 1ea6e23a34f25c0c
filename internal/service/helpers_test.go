package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/config"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/encryption"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/filestore"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/hashing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

var testStart = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// tickingClock advances one second on every read so creation order is
// visible in timestamps.
func tickingClock(start time.Time) Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newTestDisk(t *testing.T) *filestore.Disk {
	t.Helper()
	disk, err := filestore.NewDisk(t.TempDir(), "http://localhost:3000")
	require.NoError(t, err)
	return disk
}

func newTestHasher() *hashing.Hasher {
	return hashing.NewHasherWithParams(hashing.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}, "test-pepper")
}

func newTestCipher(t *testing.T) *encryption.EncryptionManager {
	t.Helper()
	util.SetLogger(zap.NewNop())
	em, err := encryption.NewEncryptionManager(&config.Config{}, nil)
	require.NoError(t, err)
	return em
}

// requireAppError asserts err resolves to the given status and label.
func requireAppError(t *testing.T, err error, status int, label string) *apperror.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr), "expected *apperror.Error, got %T: %v", err, err)
	require.Equal(t, status, appErr.Status)
	if label != "" {
		require.Equal(t, label, appErr.Label)
	}
	return appErr
}
