package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campusworks/user-service/internal/cache"
	"github.com/campusworks/user-service/internal/models"
	"github.com/campusworks/user-service/internal/repositories"
)

type userRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &userRepository{
		db:           db,
		cacheManager: cacheManager,
	}
}

// ===== CACHE ENTRIES =====

// cachedUser mirrors models.User for cache storage. The entity hides the
// password from JSON, so caching it directly would wipe the password on
// every round-trip and a later Save of the read-through result would
// persist the empty string.
type cachedUser struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Role      models.UserRole `json:"role"`
	Photo     *string         `json:"photo"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newCachedUser(u *models.User) *cachedUser {
	return &cachedUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		Role:      u.Role,
		Photo:     u.Photo,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c *cachedUser) toModel() *models.User {
	return &models.User{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Password:  c.Password,
		Role:      c.Role,
		Photo:     c.Photo,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type cachedUserList struct {
	Users []*cachedUser `json:"users"`
	Total int64         `json:"total"`
}

func listCacheKey(filters repositories.UserFilters) string {
	role := ""
	if filters.Role != nil {
		role = string(*filters.Role)
	}
	return fmt.Sprintf("list:q=%s:role=%s:limit=%d:offset=%d", filters.Query, role, filters.Limit, filters.Offset)
}

func emailExistsKey(email string) string {
	return fmt.Sprintf("email:%s", email)
}

// ===== BASIC CRUD OPERATIONS =====

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%d", id)

	var cached cachedUser
	err := r.cacheManager.User.CacheOrExecute(ctx, cacheKey, &cached, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var u models.User
		if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
			return nil, fmt.Errorf("get user by id: %w", err)
		}
		return newCachedUser(&u), nil
	})
	if err != nil {
		return nil, err
	}

	return cached.toModel(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	cache.InvalidateUserCache(ctx, r.cacheManager, user.ID, user.Email)
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	// Fetch first so the previous email's exists-cache can be invalidated
	var previous models.User
	if err := r.db.WithContext(ctx).First(&previous, user.ID).Error; err != nil {
		return fmt.Errorf("get user before update: %w", err)
	}

	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	cache.InvalidateUserCache(ctx, r.cacheManager, user.ID, user.Email)
	if previous.Email != user.Email {
		cache.SafeDelete(ctx, r.cacheManager.Exists, emailExistsKey(previous.Email))
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	// Fetch first so the email exists-cache can be invalidated too
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return fmt.Errorf("get user before delete: %w", err)
	}

	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("delete user: %w", gorm.ErrRecordNotFound)
	}

	cache.InvalidateUserCache(ctx, r.cacheManager, id, user.Email)
	return nil
}

// ===== QUERY OPERATIONS =====

func (r *userRepository) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var cached cachedUserList
	err := r.cacheManager.User.CacheOrExecute(ctx, listCacheKey(filters), &cached, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		users, total, err := r.listFromDB(ctx, filters)
		if err != nil {
			return nil, err
		}

		entry := &cachedUserList{
			Users: make([]*cachedUser, len(users)),
			Total: total,
		}
		for i, user := range users {
			entry.Users[i] = newCachedUser(user)
		}
		return entry, nil
	})
	if err != nil {
		return nil, 0, err
	}

	users := make([]*models.User, len(cached.Users))
	for i, entry := range cached.Users {
		users[i] = entry.toModel()
	}
	return users, cached.Total, nil
}

func (r *userRepository) listFromDB(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})

	if filters.Query != "" {
		searchQuery := "%" + filters.Query + "%"
		query = query.Where("name ILIKE ? OR email ILIKE ?", searchQuery, searchQuery)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	cacheKey := emailExistsKey(email)

	var exists bool
	if err := r.cacheManager.Exists.Get(ctx, cacheKey, &exists); err == nil {
		return exists, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check user email exists: %w", err)
	}
	exists = count > 0

	// Stale entries are bounded by the short TTL and by the unique index,
	// which stays the source of truth for conflicting writes.
	_ = r.cacheManager.Exists.Set(ctx, cacheKey, exists, cache.ExistsCacheConfig.TTL)

	return exists, nil
}
