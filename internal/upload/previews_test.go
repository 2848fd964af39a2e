package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
)

func TestPreviewsLifecycle(t *testing.T) {
	p := NewPreviews(3, 1<<20)

	img, err := p.Add("form-1", "receipt.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, img.IsImage())

	doc, err := p.Add("form-1", "invoice.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.False(t, doc.IsImage())

	_, err = p.Add("form-2", "other.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	files := p.Files("form-1")
	require.Len(t, files, 2)
	assert.Equal(t, "receipt.png", files[0].Filename)

	assert.True(t, p.Release(img.Handle))
	assert.False(t, p.Release(img.Handle))
	_, ok := p.Get(img.Handle)
	assert.False(t, ok)

	assert.Equal(t, 1, p.ReleaseForm("form-1"))
	assert.Equal(t, 0, p.ReleaseForm("form-1"))
	assert.Equal(t, 1, p.Len())
	assert.Empty(t, p.Files("form-1"))
}

func TestPreviewsRejects(t *testing.T) {
	p := NewPreviews(1, 64)

	_, err := p.Add("f", "notes.txt", []byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = p.Add("f", "empty.png", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = p.Add("f", "huge.png", append(pngBytes, make([]byte, 100)...))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = p.Add("f", "a.png", pngBytes)
	require.NoError(t, err)
	_, err = p.Add("f", "b.png", pngBytes)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Equal(t, 1, p.Len())
}
