package app

import (
	"errors"
	"fmt"
	"strings"

	"bookhive/pkg/auth"
	"bookhive/pkg/domain"
	"bookhive/pkg/store"
)

// ListUsers returns a page of accounts. Admin only, enforced at the route.
func (a *App) ListUsers(q ListQuery) (ListPage[domain.User], error) {
	offset, limit, page := q.normalize()
	items, total, err := a.store.ListUsers(q.Search, offset, limit)
	if err != nil {
		return ListPage[domain.User]{}, err
	}
	return newListPage(items, total, page, limit), nil
}

// GetUser retrieves an account by ID.
func (a *App) GetUser(id string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

// UserInput carries partial update fields for an account.
type UserInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// UpdateUser merges the provided fields into an account. Only the account
// owner or an admin may update it; changing the role requires an admin.
func (a *App) UpdateUser(actor domain.User, id string, in UserInput) (domain.User, error) {
	if actor.ID != id && actor.Role != domain.RoleAdmin {
		return domain.User{}, fmt.Errorf("%w: not the account owner", ErrAccessDenied)
	}
	if in.Role != nil && actor.Role != domain.RoleAdmin {
		return domain.User{}, fmt.Errorf("%w: only admins may change roles", ErrAccessDenied)
	}
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, fmt.Errorf("%w: user", ErrNotFound)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return domain.User{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: %s", ErrValidation, err)
		}
		user.Email = email
	}
	if in.Role != nil {
		role := domain.UserRole(strings.TrimSpace(*in.Role))
		if role != domain.RoleUser && role != domain.RoleAdmin {
			return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, *in.Role)
		}
		user.Role = role
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return domain.User{}, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = a.now()
	if err := a.store.SaveUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return domain.User{}, err
	}
	return user, nil
}

// DeleteUser removes an account.
func (a *App) DeleteUser(id string) error {
	_, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return a.store.DeleteUser(id)
}
