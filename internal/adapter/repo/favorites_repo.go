package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"setka/internal/domain"
	"setka/internal/infra"
	"setka/internal/sqlinline"
)

// FavoritesRepo implements domain.FavoritesRepository. Images filed at the
// top of a category carry domain.RootFolderID as their folder.
type FavoritesRepo struct {
	sql   infra.SQLExecutor
	newID func() string
}

func NewFavoritesRepo(sql infra.SQLExecutor) *FavoritesRepo {
	return &FavoritesRepo{sql: sql, newID: uuid.NewString}
}

// Load assembles both shelves of userID's library.
func (r *FavoritesRepo) Load(ctx context.Context, userID string) (*domain.Favorites, error) {
	fav := &domain.Favorites{}
	index := map[string]*domain.FavoritesFolder{}

	rows, err := r.sql.Query(ctx, sqlinline.QSelectFavoriteFolders, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var f domain.FavoritesFolder
		var category string
		if err := rows.Scan(&f.ID, &category, &f.Name, &f.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		f.Category = domain.FavoritesCategory(category)
		f.Images = []string{}
		shelf := fav.Shelf(f.Category)
		shelf.Folders = append(shelf.Folders, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, c := range []domain.FavoritesCategory{domain.CategoryPhotos, domain.CategoryAvatars} {
		shelf := fav.Shelf(c)
		for i := range shelf.Folders {
			index[shelf.Folders[i].ID] = &shelf.Folders[i]
		}
	}

	rows, err = r.sql.Query(ctx, sqlinline.QSelectFavoriteImages, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var category, folderID, imageID string
		if err := rows.Scan(&category, &folderID, &imageID); err != nil {
			return nil, err
		}
		if folderID == domain.RootFolderID {
			shelf := fav.Shelf(domain.FavoritesCategory(category))
			shelf.Root = append(shelf.Root, imageID)
			continue
		}
		if f, ok := index[folderID]; ok {
			f.Images = append(f.Images, imageID)
		}
	}
	return fav, rows.Err()
}

func (r *FavoritesRepo) CreateFolder(ctx context.Context, userID string, category domain.FavoritesCategory, name string) (*domain.FavoritesFolder, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidSelection, category)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidSelection)
	}
	f := &domain.FavoritesFolder{ID: r.newID(), Category: category, Name: name, Images: []string{}}
	var createdAt time.Time
	if err := r.sql.QueryRow(ctx, sqlinline.QInsertFavoriteFolder, f.ID, userID, string(category), name).Scan(&createdAt); err != nil {
		return nil, err
	}
	f.CreatedAt = createdAt
	return f, nil
}

func (r *FavoritesRepo) RenameFolder(ctx context.Context, userID, folderID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: folder name is required", domain.ErrInvalidSelection)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QRenameFavoriteFolder, userID, folderID, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FavoritesRepo) DeleteFolder(ctx context.Context, userID, folderID string) error {
	if folderID == domain.RootFolderID {
		return fmt.Errorf("%w: the root folder cannot be deleted", domain.ErrInvalidSelection)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteFavoriteFolder, userID, folderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddImage files imageID under folderID. Adding twice is a no-op.
func (r *FavoritesRepo) AddImage(ctx context.Context, userID string, category domain.FavoritesCategory, folderID, imageID string) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidSelection, category)
	}
	if strings.TrimSpace(imageID) == "" {
		return fmt.Errorf("%w: image id is required", domain.ErrInvalidSelection)
	}
	if folderID == "" {
		folderID = domain.RootFolderID
	}
	if folderID != domain.RootFolderID {
		var exists bool
		if err := r.sql.QueryRow(ctx, sqlinline.QFavoriteFolderExists, userID, string(category), folderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertFavoriteImage, userID, string(category), folderID, imageID)
	return err
}

// RemoveImage unfiles imageID from every folder of both categories.
func (r *FavoritesRepo) RemoveImage(ctx context.Context, userID, imageID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeleteFavoriteImage, userID, imageID)
	return err
}

var _ domain.FavoritesRepository = (*FavoritesRepo)(nil)
