package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"setka/internal/domain"
)

type folderView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"created_at"`
}

type shelfView struct {
	Root    []string     `json:"root"`
	Folders []folderView `json:"folders"`
}

type favoritesView struct {
	Photos  shelfView `json:"photos"`
	Avatars shelfView `json:"avatars"`
}

func newShelfView(s domain.FavoritesShelf) shelfView {
	v := shelfView{Root: append([]string{}, s.Root...), Folders: make([]folderView, 0, len(s.Folders))}
	for _, f := range s.Folders {
		v.Folders = append(v.Folders, newFolderView(f))
	}
	return v
}

func newFolderView(f domain.FavoritesFolder) folderView {
	return folderView{ID: f.ID, Name: f.Name, Images: append([]string{}, f.Images...), CreatedAt: f.CreatedAt}
}

func (a *App) FavoritesList(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	a.writeFavorites(w, r, userID)
}

func (a *App) writeFavorites(w http.ResponseWriter, r *http.Request, userID string) {
	fav, err := a.Favorites.Load(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, favoritesView{Photos: newShelfView(fav.Photos), Avatars: newShelfView(fav.Avatars)})
}

type folderRequest struct {
	Category domain.FavoritesCategory `json:"category"`
	Name     string                   `json:"name"`
}

func (a *App) FavoritesCreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req folderRequest
	if !a.decode(w, r, &req) {
		return
	}
	folder, err := a.Favorites.CreateFolder(r.Context(), userID, req.Category, req.Name)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, newFolderView(*folder))
}

func (a *App) FavoritesRenameFolder(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req folderRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Favorites.RenameFolder(r.Context(), userID, chi.URLParam(r, "folder_id"), req.Name); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FavoritesDeleteFolder drops the folder together with the images filed in it.
func (a *App) FavoritesDeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := a.Favorites.DeleteFolder(r.Context(), userID, chi.URLParam(r, "folder_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type favoriteImageRequest struct {
	Category domain.FavoritesCategory `json:"category"`
	FolderID string                   `json:"folder_id"`
	ImageID  string                   `json:"image_id"`
}

func (a *App) FavoritesAddImage(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req favoriteImageRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Favorites.AddImage(r.Context(), userID, req.Category, req.FolderID, req.ImageID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FavoritesRemoveImage unfiles the image from every folder of both categories.
func (a *App) FavoritesRemoveImage(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	if err := a.Favorites.RemoveImage(r.Context(), userID, chi.URLParam(r, "image_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
