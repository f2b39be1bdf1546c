package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfgarden/pdfgarden/internal/pdf"
	"github.com/pdfgarden/pdfgarden/internal/store"
)

func TestUnlock(t *testing.T) {
	sess := newTestSession(t)

	t.Run("swaps ciphertext and clears lock flag", func(t *testing.T) {
		st := store.New()
		rec := sealedRecord(t, sess, "u1", "secret.pdf", []byte("locked-bytes"))
		rec.Locked = true
		st.AddRecords([]*store.Record{rec})
		before, _ := st.Get("u1")

		unlocker := &fakeUnlocker{password: "hunter2"}
		require.NoError(t, Unlock(st, sess, unlocker, "u1", "hunter2"))

		got, ok := st.Get("u1")
		require.True(t, ok)
		assert.False(t, got.Locked)
		assert.NotEqual(t, before.Ciphertext, got.Ciphertext)
		assert.NotEqual(t, before.Nonce, got.Nonce)

		plaintext, err := sess.Open(got.Ciphertext, got.Nonce)
		require.NoError(t, err)
		assert.Equal(t, []byte("unlocked:locked-bytes"), plaintext)
	})

	t.Run("wrong password leaves the record untouched", func(t *testing.T) {
		st := store.New()
		rec := sealedRecord(t, sess, "u2", "secret.pdf", []byte("locked-bytes"))
		rec.Locked = true
		st.AddRecords([]*store.Record{rec})
		before, _ := st.Get("u2")

		unlocker := &fakeUnlocker{password: "hunter2"}
		err := Unlock(st, sess, unlocker, "u2", "wrong")
		require.ErrorIs(t, err, pdf.ErrPasswordMismatch)

		got, ok := st.Get("u2")
		require.True(t, ok)
		assert.True(t, got.Locked)
		assert.Equal(t, before.Ciphertext, got.Ciphertext)
		assert.Equal(t, before.Nonce, got.Nonce)
	})

	t.Run("absent record", func(t *testing.T) {
		st := store.New()
		err := Unlock(st, sess, &fakeUnlocker{password: "x"}, "ghost", "x")
		require.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestMerge(t *testing.T) {
	sess := newTestSession(t)

	addRecord := func(st *store.Store, id string, content []byte, locked bool) {
		rec := sealedRecord(t, sess, id, id+".pdf", content)
		rec.Locked = locked
		st.AddRecords([]*store.Record{rec})
	}

	t.Run("merges in caller order", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)
		addRecord(st, "b", []byte("BBB"), false)
		addRecord(st, "c", []byte("CCC"), false)

		merger := &fakeMerger{}
		out, err := Merge(st, sess, merger, []string{"c", "a", "b"}, nil)
		require.NoError(t, err)

		assert.Equal(t, [][]byte{[]byte("CCC"), []byte("AAA"), []byte("BBB")}, merger.sources)
		assert.Equal(t, []byte("CCC|AAA|BBB"), out)
	})

	t.Run("fewer than two files rejected", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)

		_, err := Merge(st, sess, &fakeMerger{}, []string{"a"}, nil)
		require.ErrorIs(t, err, ErrNotEnoughFiles)
	})

	t.Run("locked input rejected up front", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)
		addRecord(st, "b", []byte("BBB"), true)

		merger := &fakeMerger{}
		_, err := Merge(st, sess, merger, []string{"a", "b"}, nil)
		require.ErrorIs(t, err, ErrLockedRecord)
		assert.Nil(t, merger.sources)
	})

	t.Run("zero-length source skipped", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)
		addRecord(st, "empty", nil, false)
		addRecord(st, "b", []byte("BBB"), false)

		merger := &fakeMerger{}
		out, err := Merge(st, sess, merger, []string{"a", "empty", "b"}, nil)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("AAA"), []byte("BBB")}, merger.sources)
		assert.Equal(t, []byte("AAA|BBB"), out)
	})

	t.Run("absent id fails the whole merge", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)

		_, err := Merge(st, sess, &fakeMerger{}, []string{"a", "ghost"}, nil)
		require.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("reports status per source", func(t *testing.T) {
		st := store.New()
		addRecord(st, "a", []byte("AAA"), false)
		addRecord(st, "b", []byte("BBB"), false)

		var events []statusEvent
		_, err := Merge(st, sess, &fakeMerger{}, []string{"a", "b"}, func(s store.Status, p int) {
			events = append(events, statusEvent{s, p})
		})
		require.NoError(t, err)

		want := []statusEvent{
			{store.StatusReading, 5},
			{store.StatusConverting, 50},
			{store.StatusConverting, 100},
			{store.StatusCompleted, 100},
		}
		assert.Equal(t, want, events)
	})
}
