package account

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"julianmorley.ca/con-plar/purchases/pkg/global"
	"julianmorley.ca/con-plar/purchases/pkg/images"
	"julianmorley.ca/con-plar/purchases/pkg/models"
)

type memUsers map[bson.ObjectID]*models.User

func (m memUsers) FindUserByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) UpdateUser(_ context.Context, id bson.ObjectID, update models.UserUpdate) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Address != nil {
		u.Address = *update.Address
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.DateOfBirth != nil {
		u.DateOfBirth = update.DateOfBirth
	}
	if update.Password != "" {
		u.Password = update.Password
	}
	cp := *u
	return &cp, nil
}

func newTestService(t *testing.T) (*Service, memUsers, bson.ObjectID) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	id := bson.NewObjectID()
	users := memUsers{id: {ID: id, Email: "ana@example.com", Password: string(hash), Avatar: "ana.jpg"}}
	svc := NewService(users, images.NewResolver("https://shop.example.com", "images"))
	svc.cost = bcrypt.MinCost
	return svc, users, id
}

func ptr(s string) *string { return &s }

func TestGetMe(t *testing.T) {
	svc, _, id := newTestService(t)

	user, err := svc.GetMe(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "https://shop.example.com/images/ana.jpg", user.Avatar)

	_, err = svc.GetMe(context.Background(), bson.NewObjectID())
	assert.Equal(t, http.StatusUnauthorized, global.StatusOf(err))
}

func TestUpdateMeProfileFields(t *testing.T) {
	svc, users, id := newTestService(t)

	user, err := svc.UpdateMe(context.Background(), id, models.UpdateMeRequest{Name: ptr("Ana"), Phone: ptr("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "555-0100", users[id].Phone)
	assert.Equal(t, "ana.jpg", users[id].Avatar, "stored avatar stays a file name")
}

func TestUpdateMePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong current password", func(t *testing.T) {
		svc, users, id := newTestService(t)
		before := users[id].Password

		_, err := svc.UpdateMe(ctx, id, models.UpdateMeRequest{Password: "nope-nope", NewPassword: "another1"})
		var appErr *global.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
		assert.Contains(t, appErr.Fields, "password")
		assert.Equal(t, before, users[id].Password)
	})

	t.Run("new password without current", func(t *testing.T) {
		svc, _, id := newTestService(t)

		_, err := svc.UpdateMe(ctx, id, models.UpdateMeRequest{NewPassword: "another1"})
		assert.Equal(t, http.StatusUnprocessableEntity, global.StatusOf(err))
	})

	t.Run("changes hash", func(t *testing.T) {
		svc, users, id := newTestService(t)

		_, err := svc.UpdateMe(ctx, id, models.UpdateMeRequest{Password: "secret123", NewPassword: "another1"})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[id].Password), []byte("another1")))
	})
}
