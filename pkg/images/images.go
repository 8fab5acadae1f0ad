package images

import (
	"strings"

	"julianmorley.ca/con-plar/purchases/pkg/models"
)

// Resolver turns stored image file names into absolute URLs.
type Resolver struct {
	Host  string
	Route string
}

func NewResolver(host, route string) *Resolver {
	return &Resolver{
		Host:  strings.TrimRight(host, "/"),
		Route: strings.Trim(route, "/"),
	}
}

// URL returns the absolute URL for name. Empty names and names that are
// already absolute are returned unchanged.
func (r *Resolver) URL(name string) string {
	if name == "" || strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	return r.Host + "/" + r.Route + "/" + strings.TrimLeft(name, "/")
}

// Product rewrites the image fields of a joined product in place.
func (r *Resolver) Product(p *models.ProductDetail) {
	p.Image = r.URL(p.Image)
	if len(p.Images) == 0 {
		return
	}
	resolved := make([]string, len(p.Images))
	for i, img := range p.Images {
		resolved[i] = r.URL(img)
	}
	p.Images = resolved
}

// User rewrites the avatar of u in place.
func (r *Resolver) User(u *models.User) {
	u.Avatar = r.URL(u.Avatar)
}
