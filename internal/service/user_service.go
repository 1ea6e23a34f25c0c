package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/apperror"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/encryption"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/events"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/hashing"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/models"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
)

const (
	msgUserNotFound = "Usuario no encontrado"
	uniqueEmail     = "email"
	decryptWorkers  = 8
)

type UserFilter struct {
	Role     string
	IsActive *bool
	Page
}

type UserInput struct {
	Name     Field[string]
	Email    Field[string]
	Password Field[string]
	Role     Field[string]
	Avatar   Field[string]
	IsActive Field[bool]
}

// UserService stores users with a hashed password and an encrypted email.
// Email uniqueness is enforced on a keyed digest of the address.
type UserService struct {
	users     *document.Collection[models.UserRecord]
	hasher    *hashing.Hasher
	cipher    *encryption.EncryptionManager
	publisher events.Publisher
	cache     *UserCache
	clock     Clock
	logger    *zap.Logger
}

// UserCache keeps decrypted public views by id for a short time.
type UserCache struct {
	users    sync.Map
	duration time.Duration
}

type cachedUser struct {
	user    models.User
	expires time.Time
}

func NewUserCache(duration time.Duration) *UserCache {
	return &UserCache{duration: duration}
}

func (c *UserCache) get(id string, now time.Time) (*models.User, bool) {
	v, ok := c.users.Load(id)
	if !ok {
		return nil, false
	}
	entry := v.(cachedUser)
	if now.After(entry.expires) {
		c.users.Delete(id)
		return nil, false
	}
	u := entry.user
	return &u, true
}

func (c *UserCache) put(u *models.User, now time.Time) {
	c.users.Store(u.ID, cachedUser{user: *u, expires: now.Add(c.duration)})
}

func (c *UserCache) invalidate(id string) {
	c.users.Delete(id)
}

// Clear drops every cached user.
func (c *UserCache) Clear() {
	c.users.Range(func(k, _ any) bool {
		c.users.Delete(k)
		return true
	})
}

func NewUserService(
	store document.Store,
	hasher *hashing.Hasher,
	cipher *encryption.EncryptionManager,
	publisher events.Publisher,
	cache *UserCache,
	clock Clock,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users: document.NewCollection[models.UserRecord](store, "users",
			func(u *models.UserRecord) string { return u.ID },
			func(u *models.UserRecord) map[string]string { return map[string]string{uniqueEmail: u.EmailDigest} }),
		hasher:    hasher,
		cipher:    cipher,
		publisher: publisher,
		cache:     cache,
		clock:     clock,
		logger:    logger,
	}
}

// List returns users newest first.
func (s *UserService) List(ctx context.Context, f UserFilter) (*PageResult[*models.User], error) {
	p := f.Page.normalized()
	match := func(u *models.UserRecord) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			return false
		}
		return true
	}

	var (
		records []*models.UserRecord
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.users.Find(gctx, document.Query[models.UserRecord]{
			Match: match,
			Less:  func(a, b *models.UserRecord) bool { return a.CreatedAt.After(b.CreatedAt) },
			Skip:  p.skip(),
			Limit: p.Limit,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.users.Count(gctx, match)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.Unexpected(err)
	}

	data, err := s.views(ctx, records)
	if err != nil {
		return nil, err
	}
	return &PageResult[*models.User]{Data: data, Pagination: paginate(p, total)}, nil
}

// views decrypts records concurrently, keeping their order.
func (s *UserService) views(ctx context.Context, records []*models.UserRecord) ([]*models.User, error) {
	out := make([]*models.User, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decryptWorkers)
	for i, rec := range records {
		g.Go(func() error {
			u, err := s.view(gctx, rec)
			if err != nil {
				return err
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) view(ctx context.Context, rec *models.UserRecord) (*models.User, error) {
	now := s.clock.now()
	if u, ok := s.cache.get(rec.ID, now); ok && u.UpdatedAt.Equal(rec.UpdatedAt) {
		return u, nil
	}

	email, err := s.cipher.DecryptField(ctx, rec.EmailEnc)
	if err != nil {
		return nil, apperror.Unexpected(err)
	}
	u := &models.User{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     email,
		Role:      rec.Role,
		Avatar:    rec.Avatar,
		IsActive:  rec.IsActive,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	s.cache.put(u, now)
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	rec, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, userError(err)
	}
	return s.view(ctx, rec)
}

func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	now := s.clock.now()
	rec := &models.UserRecord{
		ID:        models.NewObjectID(),
		Name:      in.Name.Value,
		Role:      in.Role.Or("user"),
		Avatar:    in.Avatar.Ptr(),
		IsActive:  in.IsActive.Or(true),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.setEmail(ctx, rec, in.Email.Value); err != nil {
		return nil, err
	}
	if err := s.setPassword(rec, in.Password.Value); err != nil {
		return nil, err
	}

	if err := s.users.Insert(ctx, rec); err != nil {
		return nil, userError(err)
	}

	u, err := s.view(ctx, rec)
	if err != nil {
		return nil, err
	}
	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserCreated, u.ID, map[string]string{
		"id": u.ID, "name": u.Name, "role": u.Role,
	}))
	s.logger.Info("User created", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Update applies the sent fields. A new email is checked for uniqueness
// and a new password is hashed.
func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*models.User, error) {
	// Hashing and encryption happen once, outside the retried mutation.
	var staged models.UserRecord
	if in.Email.Set {
		if err := s.setEmail(ctx, &staged, in.Email.Value); err != nil {
			return nil, err
		}
	}
	if in.Password.Set {
		if err := s.setPassword(&staged, in.Password.Value); err != nil {
			return nil, err
		}
	}

	rec, err := s.users.Update(ctx, id, func(u *models.UserRecord) error {
		if in.Name.Set {
			u.Name = in.Name.Value
		}
		if in.Email.Set {
			u.EmailEnc = staged.EmailEnc
			u.EmailDigest = staged.EmailDigest
		}
		if in.Password.Set {
			u.PasswordHash = staged.PasswordHash
		}
		if in.Role.Set {
			u.Role = in.Role.Value
		}
		if in.Avatar.Set {
			u.Avatar = in.Avatar.Ptr()
		}
		if in.IsActive.Set {
			u.IsActive = in.IsActive.Value
		}
		u.UpdatedAt = s.clock.now()
		return nil
	})
	if err != nil {
		return nil, userError(err)
	}
	s.cache.invalidate(id)
	return s.view(ctx, rec)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return userError(err)
	}
	s.cache.invalidate(id)
	return nil
}

// Refs resolves user ids to references. Unknown ids are absent from the
// result.
func (s *UserService) Refs(ctx context.Context, ids []string) (map[string]*models.UserRef, error) {
	out := make(map[string]*models.UserRef, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decryptWorkers)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			u, err := s.Get(gctx, id)
			if apperror.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = &models.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckPassword reports whether password matches the stored hash of id.
func (s *UserService) CheckPassword(ctx context.Context, id, password string) (bool, error) {
	rec, err := s.users.Get(ctx, id)
	if err != nil {
		return false, userError(err)
	}
	return s.hasher.VerifyPassword(password, rec.PasswordHash)
}

func (s *UserService) setEmail(ctx context.Context, rec *models.UserRecord, email string) error {
	enc, err := s.cipher.EncryptField(ctx, email)
	if err != nil {
		return apperror.Unexpected(err)
	}
	rec.EmailEnc = enc
	rec.EmailDigest = s.hasher.Digest(email)
	return nil
}

func (s *UserService) setPassword(rec *models.UserRecord, password string) error {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return apperror.Unexpected(err)
	}
	rec.PasswordHash = hash
	return nil
}

// Cleanup releases cached views.
func (s *UserService) Cleanup() {
	s.cache.Clear()
}

func userError(err error) error {
	var dup *document.DuplicateError
	if errors.As(err, &dup) {
		return apperror.Duplicate(dup.Field)
	}
	if apperror.IsNotFound(err) {
		return apperror.NotFound(msgUserNotFound)
	}
	return apperror.From(err)
}
