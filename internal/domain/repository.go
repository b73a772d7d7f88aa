package domain

import "context"

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, username string, credits int) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdatePayment(ctx context.Context, id string, mode PaymentMode, apiKey string) error
	AddCredits(ctx context.Context, id string, amount int) (int, error)
	ChargeCredits(ctx context.Context, id string, amount int) (int, error)
	Update(ctx context.Context, id string, changes UserChanges) (*User, error)
	Delete(ctx context.Context, id string) error
}

// PromoRepository persists promo codes and their redemptions.
type PromoRepository interface {
	Create(ctx context.Context, name string, credits int) (*PromoCode, error)
	List(ctx context.Context) ([]PromoCode, error)
	Delete(ctx context.Context, code string) error
	Redeem(ctx context.Context, code, userID string) (int, error)
}

// FavoritesRepository persists a user's favorites library.
type FavoritesRepository interface {
	Load(ctx context.Context, userID string) (*Favorites, error)
	CreateFolder(ctx context.Context, userID string, category FavoritesCategory, name string) (*FavoritesFolder, error)
	RenameFolder(ctx context.Context, userID, folderID, name string) error
	DeleteFolder(ctx context.Context, userID, folderID string) error
	AddImage(ctx context.Context, userID string, category FavoritesCategory, folderID, imageID string) error
	RemoveImage(ctx context.Context, userID, imageID string) error
}

// HistoryRepository stores generation results handed off by batches.
type HistoryRepository interface {
	Insert(ctx context.Context, entry *HistoryEntry) error
	Get(ctx context.Context, userID, id string) (*HistoryEntry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
	// Delete removes the entry and returns it so the caller can drop the stored image.
	Delete(ctx context.Context, userID, id string) (*HistoryEntry, error)
}
