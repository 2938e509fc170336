package archive

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func TestBundle(t *testing.T) {
	files := []File{
		{Name: "scan_1.jpg", Data: []byte("first")},
		{Name: "scan_2.jpg", Data: []byte("second")},
		{Name: "scan_1.jpg", Data: []byte("again")},
	}

	data, err := Bundle(files)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	want := []struct{ name, body string }{
		{"scan_1.jpg", "first"},
		{"scan_2.jpg", "second"},
		{"scan_1(1).jpg", "again"},
	}
	for i, f := range zr.File {
		require.Equal(t, want[i].name, f.Name)

		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		require.Equal(t, want[i].body, string(body))
	}
}

func TestBundle_Empty(t *testing.T) {
	_, err := Bundle(nil)
	require.Error(t, err)
}

func TestUniqueName(t *testing.T) {
	seen := map[string]int{}
	require.Equal(t, "a.jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "a(1).jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "a(2).jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "noext", uniqueName(seen, "noext"))
	require.Equal(t, "noext(1)", uniqueName(seen, "noext"))

	// имя, совпавшее со сгенерированным ранее, получает свой суффикс
	seen = map[string]int{}
	require.Equal(t, "a.jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "a(1).jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "a(1)(1).jpg", uniqueName(seen, "a(1).jpg"))
	require.Equal(t, "a(2).jpg", uniqueName(seen, "a.jpg"))

	// и наоборот: входное a(1).jpg раньше дубликата
	seen = map[string]int{}
	require.Equal(t, "a.jpg", uniqueName(seen, "a.jpg"))
	require.Equal(t, "a(1).jpg", uniqueName(seen, "a(1).jpg"))
	require.Equal(t, "a(2).jpg", uniqueName(seen, "a.jpg"))
}

func TestBundle_NoDuplicateEntries(t *testing.T) {
	data, err := Bundle([]File{
		{Name: "a.jpg", Data: []byte("1")},
		{Name: "a.jpg", Data: []byte("2")},
		{Name: "a(1).jpg", Data: []byte("3")},
		{Name: "a(1).jpg", Data: []byte("4")},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)

	names := make(map[string]struct{}, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = struct{}{}
	}
	require.Len(t, names, 4)
}
