package images

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

func TestResolverURL(t *testing.T) {
	r := NewResolver("http://shop.local/", "/images/")

	assert.Equal(t, "http://shop.local/images/a.png", r.URL("a.png"))
	assert.Equal(t, "http://shop.local/images/a.png", r.URL("/a.png"))
	assert.Equal(t, "", r.URL(""))
	assert.Equal(t, "https://cdn.example.com/a.png", r.URL("https://cdn.example.com/a.png"))
}

func TestResolverProduct(t *testing.T) {
	r := NewResolver("http://shop.local", "images")
	original := []string{"1.png", "", "2.png"}
	p := &models.ProductDetail{Image: "cover.png", Images: original}

	r.Product(p)

	assert.Equal(t, "http://shop.local/images/cover.png", p.Image)
	assert.Equal(t, []string{"http://shop.local/images/1.png", "", "http://shop.local/images/2.png"}, p.Images)
	assert.Equal(t, "1.png", original[0], "input slice must not be mutated")
}

func TestResolverUser(t *testing.T) {
	r := NewResolver("http://shop.local", "images")
	u := &models.User{Avatar: "me.jpg"}
	r.User(u)
	assert.Equal(t, "http://shop.local/images/me.jpg", u.Avatar)
}
