package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfgarden/pdfgarden/internal/store"
)

func rec(id, name string, status store.Status, pages ...store.Page) *store.Record {
	return &store.Record{
		ID:         id,
		Name:       name,
		Status:     status,
		TotalPages: len(pages),
		Pages:      pages,
	}
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte)
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		out[f.Name] = content
	}
	return out
}

func TestBaseName(t *testing.T) {
	r := rec("id1", "report.pdf", store.StatusCompleted)

	assert.Equal(t, "Converted_report", BaseName(r, ""))
	assert.Equal(t, "holiday photos", BaseName(r, "holiday photos"))
	assert.Equal(t, "Converted_report", BaseName(r, "   "))

	t.Run("path separators neutralized", func(t *testing.T) {
		assert.Equal(t, "_etc_passwd", BaseName(r, "/etc/passwd"))
	})

	t.Run("extensionless original", func(t *testing.T) {
		assert.Equal(t, "Converted_scan", BaseName(rec("id2", "scan", store.StatusCompleted), ""))
	})
}

func TestFileName(t *testing.T) {
	t.Run("single page downloads bare", func(t *testing.T) {
		r := rec("id1", "photo.png", store.StatusCompleted,
			store.Page{PageNum: 1, Data: []byte("x"), MIME: "image/jpeg"})
		assert.Equal(t, "Converted_photo.jpg", FileName(r, r.Pages[0], ""))
	})

	t.Run("multi page numbered", func(t *testing.T) {
		r := rec("id1", "report.pdf", store.StatusCompleted,
			store.Page{PageNum: 1, Data: []byte("a"), MIME: "image/png"},
			store.Page{PageNum: 2, Data: []byte("b"), MIME: "image/png"})
		assert.Equal(t, "Converted_report_p1.png", FileName(r, r.Pages[0], ""))
		assert.Equal(t, "Converted_report_p2.png", FileName(r, r.Pages[1], ""))
	})

	t.Run("pdf output", func(t *testing.T) {
		r := rec("id1", "big.pdf", store.StatusCompleted,
			store.Page{PageNum: 1, Data: []byte("p"), MIME: "application/pdf"})
		assert.Equal(t, "Converted_big.pdf", FileName(r, r.Pages[0], ""))
	})
}

func TestArchive(t *testing.T) {
	r := rec("id1", "report.pdf", store.StatusCompleted,
		store.Page{PageNum: 1, Data: []byte("page one"), MIME: "image/jpeg"},
		store.Page{PageNum: 2, Data: []byte("page two"), MIME: "image/jpeg"})

	data, err := Archive(r, "")
	require.NoError(t, err)

	entries := readZip(t, data)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("page one"), entries["Converted_report_p1.jpg"])
	assert.Equal(t, []byte("page two"), entries["Converted_report_p2.jpg"])
}

func TestArchiveAll(t *testing.T) {
	t.Run("only completed records included", func(t *testing.T) {
		snapshot := store.Snapshot{Records: []*store.Record{
			rec("a", "done.pdf", store.StatusCompleted,
				store.Page{PageNum: 1, Data: []byte("ok"), MIME: "image/jpeg"}),
			rec("b", "failed.pdf", store.StatusError,
				store.Page{PageNum: 1, Data: []byte("partial"), MIME: "image/jpeg"}),
			rec("c", "pending.pdf", store.StatusPending),
		}}

		data, err := ArchiveAll(snapshot)
		require.NoError(t, err)

		entries := readZip(t, data)
		require.Len(t, entries, 1)
		assert.Contains(t, entries, "Converted_done.jpg")
	})

	t.Run("colliding names get suffixed", func(t *testing.T) {
		snapshot := store.Snapshot{Records: []*store.Record{
			rec("a", "scan.pdf", store.StatusCompleted,
				store.Page{PageNum: 1, Data: []byte("first"), MIME: "image/jpeg"}),
			rec("b", "scan.pdf", store.StatusCompleted,
				store.Page{PageNum: 1, Data: []byte("second"), MIME: "image/jpeg"}),
		}}

		data, err := ArchiveAll(snapshot)
		require.NoError(t, err)

		entries := readZip(t, data)
		require.Len(t, entries, 2)
		assert.Equal(t, []byte("first"), entries["Converted_scan.jpg"])
		assert.Equal(t, []byte("second"), entries["Converted_scan (1).jpg"])
	})

	t.Run("nothing to archive", func(t *testing.T) {
		_, err := ArchiveAll(store.Snapshot{Records: []*store.Record{
			rec("a", "pending.pdf", store.StatusPending),
		}})
		require.Error(t, err)
	})
}
