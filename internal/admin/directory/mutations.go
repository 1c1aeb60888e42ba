package directory

import (
	"context"
	"errors"

	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// Deleter is the remote half of the delete flow, satisfied by *client.Client.
type Deleter interface {
	DeleteUser(ctx context.Context, id int64) error
}

// Updater is the remote half of the edit flow, satisfied by *client.Client.
type Updater interface {
	UpdateUser(ctx context.Context, id int64, patch user.Update) (user.User, error)
}

// DeleteFlow arms a two-step delete: Request records the target, Confirm
// performs it. Nothing is deleted until the second step, and Cancel at any
// point disarms without a server call.
type DeleteFlow struct {
	deleter   Deleter
	onDeleted func(ctx context.Context)

	target  *user.User
	lastErr string
}

func NewDeleteFlow(deleter Deleter, onDeleted func(ctx context.Context)) *DeleteFlow {
	if deleter == nil {
		panic("directory: nil deleter")
	}

	return &DeleteFlow{deleter: deleter, onDeleted: onDeleted}
}

// Request arms the flow for u. A second Request replaces the target.
func (f *DeleteFlow) Request(u user.User) {
	copied := u
	f.target = &copied
	f.lastErr = ""
}

// Pending returns the armed target, or ok=false when nothing is armed.
func (f *DeleteFlow) Pending() (user.User, bool) {
	if f.target == nil {
		return user.User{}, false
	}

	return *f.target, true
}

func (f *DeleteFlow) Err() string {
	return f.lastErr
}

// Cancel disarms the flow without touching the server.
func (f *DeleteFlow) Cancel() {
	f.target = nil
	f.lastErr = ""
}

// Confirm performs the armed delete. On success the flow disarms and the
// onDeleted hook runs (the view refetches there); on failure the flow stays
// armed so the user can retry or cancel.
func (f *DeleteFlow) Confirm(ctx context.Context) error {
	if f.target == nil {
		return errors.New("no delete pending")
	}

	err := f.deleter.DeleteUser(ctx, f.target.ID)

	if err != nil {
		f.lastErr = mutationMessage(err, "Failed to delete user")
		return err
	}

	f.target = nil
	f.lastErr = ""

	if f.onDeleted != nil {
		f.onDeleted(ctx)
	}

	return nil
}

// EditInput is the edit form as submitted. Empty password means "keep".
type EditInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      user.Role
	Active    bool
	Password  string
}

// EditFlow edits one user at a time. Submit sends only the fields that
// differ from the opened snapshot, so concurrent changes to untouched
// fields are never clobbered.
type EditFlow struct {
	updater   Updater
	onUpdated func(ctx context.Context)

	original *user.User
	lastErr  string
}

func NewEditFlow(updater Updater, onUpdated func(ctx context.Context)) *EditFlow {
	if updater == nil {
		panic("directory: nil updater")
	}

	return &EditFlow{updater: updater, onUpdated: onUpdated}
}

// Open starts editing u; its field values seed the form.
func (f *EditFlow) Open(u user.User) {
	copied := u
	f.original = &copied
	f.lastErr = ""
}

// Editing returns the user being edited, or ok=false when the form is closed.
func (f *EditFlow) Editing() (user.User, bool) {
	if f.original == nil {
		return user.User{}, false
	}

	return *f.original, true
}

func (f *EditFlow) Err() string {
	return f.lastErr
}

// Cancel closes the form, discarding any input.
func (f *EditFlow) Cancel() {
	f.original = nil
	f.lastErr = ""
}

// Diff computes the partial update between the opened snapshot and in.
func (f *EditFlow) Diff(in EditInput) (user.Update, error) {
	if f.original == nil {
		return user.Update{}, errors.New("no edit in progress")
	}

	var patch user.Update

	if in.Email != f.original.Email {
		patch.Email = &in.Email
	}

	if in.FirstName != f.original.FirstName {
		patch.FirstName = &in.FirstName
	}

	if in.LastName != f.original.LastName {
		patch.LastName = &in.LastName
	}

	if in.Role != f.original.Role {
		role := in.Role
		patch.Role = &role
	}

	if in.Active != f.original.Active {
		active := in.Active
		patch.Active = &active
	}

	if in.Password != "" {
		patch.Password = &in.Password
	}

	return patch, nil
}

// Submit diffs in against the opened snapshot and sends only the changed
// fields. An unchanged form closes without a server call. On success the
// form closes and onUpdated runs; on failure it stays open with the input
// preserved by the caller.
func (f *EditFlow) Submit(ctx context.Context, in EditInput) (user.User, error) {
	patch, err := f.Diff(in)

	if err != nil {
		return user.User{}, err
	}

	if patch.Empty() {
		unchanged := *f.original
		f.original = nil
		f.lastErr = ""
		return unchanged, nil
	}

	updated, err := f.updater.UpdateUser(ctx, f.original.ID, patch)

	if err != nil {
		f.lastErr = mutationMessage(err, "Failed to update user")
		return user.User{}, err
	}

	f.original = nil
	f.lastErr = ""

	if f.onUpdated != nil {
		f.onUpdated(ctx)
	}

	return updated, nil
}

// mutationMessage prefers the server's message when one came back.
func mutationMessage(err error, fallback string) string {
	var apiErr *client.APIError

	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return fallback
}
