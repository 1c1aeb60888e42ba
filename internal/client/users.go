package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/userdeck/userdeck/internal/domain/user"
)

// ListUsersQuery mirrors the /users query string. A nil Active means "both".
type ListUsersQuery struct {
	Role   string
	Active *bool
	Page   int
	Limit  int
}

func (q ListUsersQuery) values() url.Values {
	v := url.Values{}

	if q.Role != "" {
		v.Set("role", q.Role)
	}

	if q.Active != nil {
		v.Set("active", strconv.FormatBool(*q.Active))
	}

	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}

	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	return v
}

// DirectoryPage is one page of the user directory plus the filtered total.
type DirectoryPage struct {
	Users []user.User `json:"users"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func (c *Client) ListUsers(ctx context.Context, q ListUsersQuery) (DirectoryPage, error) {
	var page DirectoryPage

	err := c.do(ctx, http.MethodGet, "/users", q.values(), nil, &page)

	if err != nil {
		return DirectoryPage{}, err
	}

	return page, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, nil, &u)

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

type updateForm struct {
	Email    *string `validate:"omitempty,email"`
	Role     *string `validate:"omitempty,oneof=admin user guest"`
	Password *string `validate:"omitempty,min=8"`
}

// UpdateUser submits a partial update. Field checks run locally first, the
// same rules the server binds with.
func (c *Client) UpdateUser(ctx context.Context, id int64, patch user.Update) (user.User, error) {
	form := updateForm{
		Email:    patch.Email,
		Password: patch.Password,
	}

	if patch.Role != nil {
		role := string(*patch.Role)
		form.Role = &role
	}

	if err := c.checkForm(form); err != nil {
		return user.User{}, err
	}

	var u user.User

	err := c.do(ctx, http.MethodPatch, "/users/"+strconv.FormatInt(id, 10), nil, patch, &u)

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
