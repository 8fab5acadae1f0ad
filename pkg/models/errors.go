package models

import "errors"

// ErrNotFound is returned by repositories when no document matches.
var ErrNotFound = errors.New("document not found")

// ErrCartLineExists is returned when a write would leave two IN_CART records
// for the same user and product.
var ErrCartLineExists = errors.New("cart line already exists")
