package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		return r.saveBlocks(tx, user)
	})
	if err != nil {
		return err
	}
	user.MarkStored()
	return nil
}

// Update updates an existing user and replaces its block list. It returns
// shared.ErrConcurrencyConflict when the row changed since the user was loaded.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	model := models.UserModelFromDomain(user)
	model.Version = user.NextVersion()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateVersioned(tx, model, user.ID, user.StoredVersion()); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserBlockModel{}).Error; err != nil {
			return err
		}
		return r.saveBlocks(tx, user)
	})
	if err != nil {
		return err
	}
	user.Version = model.Version
	user.MarkStored()
	return nil
}

func (r *GormUserRepository) saveBlocks(tx *gorm.DB, user *identity.User) error {
	if len(user.BlockedUsers) == 0 {
		return nil
	}
	now := time.Now()
	blocks := make([]models.UserBlockModel, len(user.BlockedUsers))
	for i, id := range user.BlockedUsers {
		blocks[i] = models.UserBlockModel{UserID: user.ID, BlockedUserID: id, CreatedAt: now}
	}
	return tx.Create(&blocks).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDs returns the users with the given IDs
func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	if len(ids) == 0 {
		return []*identity.User{}, nil
	}
	var userModels []*models.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&userModels).Error; err != nil {
		return nil, err
	}
	return r.toDomain(ctx, userModels)
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if email == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

// FindByResetTokenHash finds the user holding an unexpired reset token
func (r *GormUserRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*identity.User, error) {
	if hash == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, r.db.WithContext(ctx).
		Where("password_reset_token_hash = ? AND password_reset_expires_at > ?", hash, now))
}

func (r *GormUserRepository) first(ctx context.Context, query *gorm.DB) (*identity.User, error) {
	var model models.UserModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	users, err := r.toDomain(ctx, []*models.UserModel{&model})
	if err != nil {
		return nil, err
	}
	return users[0], nil
}

// toDomain converts models and attaches their block lists
func (r *GormUserRepository) toDomain(ctx context.Context, userModels []*models.UserModel) ([]*identity.User, error) {
	users := make([]*identity.User, len(userModels))
	if len(userModels) == 0 {
		return users, nil
	}
	ids := make([]uuid.UUID, len(userModels))
	byID := make(map[uuid.UUID]*identity.User, len(userModels))
	for i, m := range userModels {
		users[i] = m.ToDomain()
		ids[i] = m.ID
		byID[m.ID] = users[i]
	}

	var blocks []models.UserBlockModel
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Order("created_at ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if u, ok := byID[b.UserID]; ok {
			u.BlockedUsers = append(u.BlockedUsers, b.BlockedUserID)
		}
	}
	return users, nil
}

// FindAll returns users matching the filter with pagination
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	var userModels []*models.UserModel
	var total int64

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.UserModel{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	opts := filter.ListOptions.Normalize(20)
	if err := query.
		Order(OrderClause(opts.Sort, UserSortFields, "created_at")).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&userModels).Error; err != nil {
		return nil, 0, err
	}

	users, err := r.toDomain(ctx, userModels)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}
	return query
}

// FindOnline returns online users, optionally restricted to a role
func (r *GormUserRepository) FindOnline(ctx context.Context, role *identity.Role) ([]*identity.User, error) {
	query := r.db.WithContext(ctx).Where("is_online = ?", true)
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	var userModels []*models.UserModel
	if err := query.Order("last_seen DESC").Find(&userModels).Error; err != nil {
		return nil, err
	}
	return r.toDomain(ctx, userModels)
}

// ExistsByEmailOrUsername checks for an account using either value
func (r *GormUserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("LOWER(email) = ? OR LOWER(username) = ?",
			strings.ToLower(strings.TrimSpace(email)),
			strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetPresence updates online state without loading the aggregate
func (r *GormUserRepository) SetPresence(ctx context.Context, id uuid.UUID, online bool, at time.Time) error {
	updates := map[string]any{
		"is_online": online,
		"last_seen": at,
	}
	if online {
		updates["last_active"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.UserModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordMessage bumps the counters with column updates so a concurrent
// write to the rest of either row is never overwritten
func (r *GormUserRepository) RecordMessage(ctx context.Context, senderID, receiverID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserModel{}).
			Where("id = ?", senderID).
			UpdateColumns(map[string]any{
				"messages_sent":   gorm.Expr("messages_sent + 1"),
				"last_message_at": at,
				"last_active":     at,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserModel{}).
			Where("id = ?", receiverID).
			UpdateColumns(map[string]any{
				"messages_received": gorm.Expr("messages_received + 1"),
				"last_message_at":   at,
			}).Error
	})
}

// MarkStaleOffline flips online users not seen since before to offline
func (r *GormUserRepository) MarkStaleOffline(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("is_online = ? AND last_seen < ?", true, before).
		Update("is_online", false)
	return result.RowsAffected, result.Error
}

// Stats returns aggregate user counts
func (r *GormUserRepository) Stats(ctx context.Context, since time.Time) (*identity.UserStats, error) {
	var row struct {
		Total    int64
		Verified int64
		Online   int64
		NewSince int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_verified THEN 1 ELSE 0 END), 0) AS verified,
			COALESCE(SUM(CASE WHEN is_online THEN 1 ELSE 0 END), 0) AS online,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS new_since`, since).
		Scan(&row).Error; err != nil {
		return nil, err
	}

	var roles []struct {
		Role  identity.Role
		Count int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&roles).Error; err != nil {
		return nil, err
	}

	stats := &identity.UserStats{
		Total:       row.Total,
		ByRole:      map[identity.Role]int64{identity.RoleArtist: 0, identity.RoleBuyer: 0, identity.RoleAdmin: 0},
		Verified:    row.Verified,
		Online:      row.Online,
		NewSince:    row.NewSince,
		SinceWindow: since,
	}
	for _, rc := range roles {
		stats.ByRole[rc.Role] = rc.Count
	}
	return stats, nil
}

// Ensure GormUserRepository implements identity.UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
