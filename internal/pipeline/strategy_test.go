package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfgarden/pdfgarden/internal/raster"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

func TestRasterize(t *testing.T) {
	sess := newTestSession(t)

	t.Run("emits pages in order with final size report", func(t *testing.T) {
		rec := sealedRecord(t, sess, "r1", "doc.pdf", []byte("%PDF-1.4 fake"))
		renderer := &fakeRenderer{pages: 3}
		rc := &recorder{}

		strat := &Rasterize{Renderer: renderer, Format: FormatFor(ToolPDFToJPG)}
		require.NoError(t, strat.Run(context.Background(), rec, sess, rc.callbacks()))

		assert.Equal(t, []int{1, 2, 3}, rc.pageNums())
		assert.Equal(t, []int{1, 2, 3}, renderer.lastDoc.rendered)
		for _, s := range renderer.lastDoc.scales {
			assert.Equal(t, 2.0, s)
		}
		assert.True(t, renderer.lastDoc.closed)

		// Final page event carries the accumulated output size.
		last := rc.pages[len(rc.pages)-1]
		assert.Nil(t, last.page)
		var want int64
		for _, e := range rc.pages[:len(rc.pages)-1] {
			want += int64(len(e.page.Data))
		}
		assert.Equal(t, want, last.compressedSize)

		assert.Equal(t, statusEvent{store.StatusCompleted, 100}, rc.lastStatus())
	})

	t.Run("reports reading then converting milestones", func(t *testing.T) {
		rec := sealedRecord(t, sess, "r2", "doc.pdf", []byte("%PDF-1.4 fake"))
		rc := &recorder{}

		strat := &Rasterize{Renderer: &fakeRenderer{pages: 2}, Format: FormatFor(ToolPDFToPNG)}
		require.NoError(t, strat.Run(context.Background(), rec, sess, rc.callbacks()))

		want := []statusEvent{
			{store.StatusReading, 10},
			{store.StatusReading, 50},
			{store.StatusConverting, 0},
			{store.StatusConverting, 50},
			{store.StatusConverting, 100},
			{store.StatusCompleted, 100},
		}
		assert.Equal(t, want, rc.statuses)
	})

	t.Run("empty file fails before any render", func(t *testing.T) {
		rec := sealedRecord(t, sess, "r3", "empty.pdf", nil)
		renderer := &fakeRenderer{pages: 3}
		rc := &recorder{}

		strat := &Rasterize{Renderer: renderer, Format: FormatFor(ToolPDFToJPG)}
		err := strat.Run(context.Background(), rec, sess, rc.callbacks())
		require.ErrorIs(t, err, ErrEmptyFile)
		assert.Zero(t, renderer.opens)
		assert.Empty(t, rc.pages)
	})

	t.Run("render failure surfaces the page number", func(t *testing.T) {
		rec := sealedRecord(t, sess, "r4", "doc.pdf", []byte("%PDF-1.4 fake"))
		rc := &recorder{}

		strat := &Rasterize{Renderer: &fakeRenderer{pages: 3, failPage: 2}, Format: FormatFor(ToolPDFToJPG)}
		err := strat.Run(context.Background(), rec, sess, rc.callbacks())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page 2")
		assert.Equal(t, []int{1}, rc.pageNums())
	})

	t.Run("cancelled context stops between pages", func(t *testing.T) {
		rec := sealedRecord(t, sess, "r5", "doc.pdf", []byte("%PDF-1.4 fake"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		strat := &Rasterize{Renderer: &fakeRenderer{pages: 5}, Format: FormatFor(ToolPDFToJPG)}
		err := strat.Run(ctx, rec, sess, (&recorder{}).callbacks())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestConvertImage(t *testing.T) {
	sess := newTestSession(t)

	t.Run("re-encodes with the image milestone sequence", func(t *testing.T) {
		rec := sealedRecord(t, sess, "i1", "photo.jpg", jpegFixture(t, 40, 30))
		rc := &recorder{}

		strat := &ConvertImage{Format: FormatFor(ToolConvertPNG)}
		require.NoError(t, strat.Run(context.Background(), rec, sess, rc.callbacks()))

		want := []statusEvent{
			{store.StatusReading, 10},
			{store.StatusReading, 50},
			{store.StatusConverting, 20},
			{store.StatusConverting, 80},
			{store.StatusCompleted, 100},
		}
		assert.Equal(t, want, rc.statuses)

		require.Len(t, rc.pages, 2)
		require.NotNil(t, rc.pages[0].page)
		assert.Equal(t, 1, rc.pages[0].page.PageNum)
		assert.Equal(t, raster.MIMEPNG, rc.pages[0].page.MIME)
		assert.Equal(t, int64(len(rc.pages[0].page.Data)), rc.pages[1].compressedSize)
	})

	t.Run("garbage bytes fail decode", func(t *testing.T) {
		rec := sealedRecord(t, sess, "i2", "not-an-image.jpg", []byte("garbage"))
		strat := &ConvertImage{Format: FormatFor(ToolConvertJPG)}
		err := strat.Run(context.Background(), rec, sess, (&recorder{}).callbacks())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})

	t.Run("empty file rejected", func(t *testing.T) {
		rec := sealedRecord(t, sess, "i3", "empty.png", nil)
		strat := &ConvertImage{Format: FormatFor(ToolConvertPNG)}
		err := strat.Run(context.Background(), rec, sess, (&recorder{}).callbacks())
		require.ErrorIs(t, err, ErrEmptyFile)
	})
}
