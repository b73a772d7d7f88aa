package domain

import "time"

// FavoritesCategory partitions a user's library.
type FavoritesCategory string

const (
	CategoryPhotos  FavoritesCategory = "photos"
	CategoryAvatars FavoritesCategory = "avatars"
)

// RootFolderID addresses the unfiled area of a category.
const RootFolderID = "root"

// Valid reports whether c is a known category.
func (c FavoritesCategory) Valid() bool {
	return c == CategoryPhotos || c == CategoryAvatars
}

// FavoritesFolder groups saved images inside one category.
type FavoritesFolder struct {
	ID        string
	Category  FavoritesCategory
	Name      string
	Images    []string
	CreatedAt time.Time
}

// FavoritesShelf is one category: unfiled images plus folders.
type FavoritesShelf struct {
	Root    []string
	Folders []FavoritesFolder
}

// Favorites is the complete library of a user.
type Favorites struct {
	Photos  FavoritesShelf
	Avatars FavoritesShelf
}

// Shelf returns the shelf for c.
func (f *Favorites) Shelf(c FavoritesCategory) *FavoritesShelf {
	if c == CategoryAvatars {
		return &f.Avatars
	}
	return &f.Photos
}
