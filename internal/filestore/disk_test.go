package filestore

import (
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_SaveOpenRemove(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "http://localhost:3000/")
	require.NoError(t, err)

	n, err := d.Save("a.txt", strings.NewReader("hola"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	f, err := d.Open("a.txt")
	require.NoError(t, err)
	b, _ := io.ReadAll(f)
	f.Close()
	assert.Equal(t, "hola", string(b))

	require.NoError(t, d.Remove("a.txt"))
	assert.True(t, errors.Is(d.Remove("a.txt"), os.ErrNotExist))
}

func TestDisk_SaveRefusesOverwrite(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "")
	require.NoError(t, err)

	_, err = d.Save("a.txt", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = d.Save("a.txt", strings.NewReader("2"))
	assert.Error(t, err)
}

func TestDisk_PathRejectsTraversal(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "")
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../etc/passwd", "a/b.txt"} {
		_, err := d.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestDisk_NewNameAndURL(t *testing.T) {
	d, err := NewDisk(t.TempDir(), "http://localhost:3000/")
	require.NoError(t, err)
	d.now = func() time.Time { return time.UnixMilli(1700000000123) }

	name := d.NewName("cover", "Poster.PNG")
	assert.Regexp(t, regexp.MustCompile(`^cover-1700000000123-\d+\.png$`), name)

	url := d.URL(name)
	assert.Equal(t, "http://localhost:3000/uploads/"+name, url)
	assert.Equal(t, name, NameFromURL(url))
}
