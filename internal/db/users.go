package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/emailorg/mvmail/internal/models"
	"github.com/emailorg/mvmail/internal/qm"
	"github.com/emailorg/mvmail/internal/record"
)

// USERS dictionary positions.
const (
	userUsername  = 2
	userPassword  = 3
	userEmail     = 4
	userFirstName = 5
	userLastName  = 6
	userCreatedAt = 7
	userLastLogin = 8
	userRole      = 9
	userStatus    = 10
)

// AddUser stores a user, assigning a generated ID when the caller left it
// empty, and returns the ID. The password is encrypted before storage when
// the repository has an encryptor; user.Password itself is not modified.
func (r *Repository) AddUser(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	stored := user.Password
	if r.encryptor != nil && user.Password != "" {
		enc, err := r.encryptor.EncryptString(user.Password)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt password: %w", err)
		}
		stored = enc
	}

	rec := marshalUser(user)
	rec.Set(userPassword, stored)
	if err := r.conn.WriteRecord(ctx, FileUsers, user.ID, record.Encode(rec)); err != nil {
		return "", fmt.Errorf("failed to write user: %w", err)
	}
	return user.ID, nil
}

// GetUser retrieves a user by ID, returning ErrUserNotFound when absent. The
// stored password is decrypted when the repository has an encryptor; a value
// that does not decrypt (written before encryption was enabled) is returned
// as stored, with a warning.
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	data, err := r.conn.ReadRecord(ctx, FileUsers, id)
	if err != nil {
		if errors.Is(err, qm.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := unmarshalUser(record.Decode(data))
	if r.encryptor != nil && user.Password != "" {
		plain, err := r.encryptor.DecryptString(user.Password)
		if err != nil {
			r.logger.Warn().Str("user_id", user.ID).Msg("stored password did not decrypt, returning it as stored")
		} else {
			user.Password = plain
		}
	}
	return user, nil
}

// GetUserByUsername looks a user up by username. When the username matches
// more than one record the first selected ID wins.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	crit := new(Criteria).Equal("USERNAME", username)
	ids, err := r.conn.SelectIDs(ctx, FileUsers, BuildSelect(FileUsers, crit))
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrUserNotFound
	}
	return r.GetUser(ctx, ids[0])
}

func marshalUser(u *models.User) record.Record {
	var rec record.Record
	rec.Set(fieldID, u.ID)
	rec.Set(fieldTag, tagUser)
	rec.Set(userUsername, u.Username)
	rec.Set(userPassword, u.Password)
	rec.Set(userEmail, u.Email)
	rec.Set(userFirstName, u.FirstName)
	rec.Set(userLastName, u.LastName)
	rec.Set(userCreatedAt, formatTime(u.CreatedAt))
	rec.Set(userLastLogin, formatTime(u.LastLogin))
	rec.Set(userRole, u.Role)
	rec.Set(userStatus, u.Status)
	return rec
}

func unmarshalUser(rec record.Record) *models.User {
	return &models.User{
		ID:        rec.Get(fieldID),
		Username:  rec.Get(userUsername),
		Password:  rec.Get(userPassword),
		Email:     rec.Get(userEmail),
		FirstName: rec.Get(userFirstName),
		LastName:  rec.Get(userLastName),
		CreatedAt: parseTime(rec.Get(userCreatedAt)),
		LastLogin: parseTime(rec.Get(userLastLogin)),
		Role:      rec.Get(userRole),
		Status:    rec.Get(userStatus),
	}
}
