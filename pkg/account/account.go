package account

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/images"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type UserStore interface {
	FindUserByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	UpdateUser(ctx context.Context, id bson.ObjectID, update models.UserUpdate) (*models.User, error)
}

// Service serves the caller's own profile.
type Service struct {
	users  UserStore
	images *images.Resolver
	cost   int
}

func NewService(users UserStore, resolver *images.Resolver) *Service {
	if resolver == nil {
		resolver = images.NewResolver("", "")
	}
	return &Service{users: users, images: resolver, cost: bcrypt.DefaultCost}
}

func (s *Service) GetMe(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	user, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.Unauthorized("user not found")
	}
	if err != nil {
		return nil, global.Internal("failed to load user", err)
	}
	s.images.User(user)
	return user, nil
}

// UpdateMe applies a partial profile update. Changing the password requires
// the current one.
func (s *Service) UpdateMe(ctx context.Context, id bson.ObjectID, req models.UpdateMeRequest) (*models.User, error) {
	current, err := s.users.FindUserByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.Unauthorized("user not found")
	}
	if err != nil {
		return nil, global.Internal("failed to load user", err)
	}

	update := models.UserUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		Avatar:      req.Avatar,
		DateOfBirth: req.DateOfBirth,
	}

	if req.NewPassword != "" && req.Password == "" {
		return nil, global.Unprocessable("validation failed", map[string]string{"password": "current password is required"})
	}
	if req.Password != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(current.Password), []byte(req.Password)); err != nil {
			return nil, global.Unprocessable("validation failed", map[string]string{"password": "password is incorrect"})
		}
		if req.NewPassword != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
			if err != nil {
				return nil, global.Internal("failed to hash password", err)
			}
			update.Password = string(hash)
		}
	}

	updated, err := s.users.UpdateUser(ctx, id, update)
	if errors.Is(err, models.ErrNotFound) {
		return nil, global.Unauthorized("user not found")
	}
	if err != nil {
		return nil, global.Internal("failed to update user", err)
	}
	s.images.User(updated)
	return updated, nil
}
