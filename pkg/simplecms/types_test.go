package simplecms

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMediaRefClone(t *testing.T) {
	original := NewMediaRef(map[string]any{
		"url":    "cover.jpg",
		"sizes":  []any{"s.jpg", map[string]any{"path": "m.jpg"}},
		"legacy": []byte("x.jpg"),
	})
	c := original.Clone()

	c.Raw.(map[string]any)["url"] = "other.jpg"
	c.Raw.(map[string]any)["sizes"].([]any)[0] = "changed.jpg"
	c.Raw.(map[string]any)["sizes"].([]any)[1].(map[string]any)["path"] = "changed.jpg"
	c.Raw.(map[string]any)["legacy"].([]byte)[0] = 'y'

	raw := original.Raw.(map[string]any)
	assert.Equal(t, "cover.jpg", raw["url"])
	assert.Equal(t, "s.jpg", raw["sizes"].([]any)[0])
	assert.Equal(t, "m.jpg", raw["sizes"].([]any)[1].(map[string]any)["path"])
	assert.Equal(t, []byte("x.jpg"), raw["legacy"])

	assert.Equal(t, "plain.jpg", NewMediaRef("plain.jpg").Clone().Raw)
	assert.Nil(t, MediaRef{}.Clone().Raw)
}

func TestContentItemCloneCopiesMediaRefs(t *testing.T) {
	book := &Book{ID: uuid.New(), Cover: NewMediaRef([]any{"a.jpg"}), Download: NewMediaRef(map[string]any{"path": "a.pdf"})}
	clone := book.Clone().(*Book)
	clone.Cover.Raw.([]any)[0] = "b.jpg"
	clone.Download.Raw.(map[string]any)["path"] = "b.pdf"
	assert.Equal(t, "a.jpg", book.Cover.Raw.([]any)[0])
	assert.Equal(t, "a.pdf", book.Download.Raw.(map[string]any)["path"])

	article := &Article{ID: uuid.New(), Image: NewMediaRef(map[string]any{"src": "a.png"})}
	aclone := article.Clone().(*Article)
	aclone.Image.Raw.(map[string]any)["src"] = "b.png"
	assert.Equal(t, "a.png", article.Image.Raw.(map[string]any)["src"])
}
