package directory_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/userdeck/userdeck/internal/admin/directory"
	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// Fakes for the directory.Deleter and directory.Updater interfaces

type fakeDeleter struct {
	deleteFn func(ctx context.Context, id int64) error
	calls    []int64
}

func (f *fakeDeleter) DeleteUser(ctx context.Context, id int64) error {
	f.calls = append(f.calls, id)

	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return nil
}

type fakeUpdater struct {
	updateFn func(ctx context.Context, id int64, patch user.Update) (user.User, error)
	calls    []user.Update
}

func (f *fakeUpdater) UpdateUser(ctx context.Context, id int64, patch user.Update) (user.User, error) {
	f.calls = append(f.calls, patch)

	if f.updateFn != nil {
		return f.updateFn(ctx, id, patch)
	}

	return user.User{ID: id}, nil
}

func TestDeleteFlowConfirmGate(t *testing.T) {
	ctx := context.Background()

	f := &fakeDeleter{}
	refetched := 0

	flow := directory.NewDeleteFlow(f, func(ctx context.Context) { refetched++ })

	target := user.User{ID: 7, Email: "doomed@example.com"}

	// arming alone must not delete
	flow.Request(target)

	if len(f.calls) != 0 {
		t.Fatal("Request must not call the server")
	}

	pending, ok := flow.Pending()

	if !ok || pending.ID != 7 {
		t.Fatalf("got pending=%+v ok=%t, want user 7", pending, ok)
	}

	if err := flow.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if len(f.calls) != 1 || f.calls[0] != 7 {
		t.Fatalf("got delete calls %v, want [7]", f.calls)
	}

	if _, ok := flow.Pending(); ok {
		t.Fatal("flow should disarm after a successful delete")
	}

	if refetched != 1 {
		t.Fatalf("expected one refetch after delete, got %d", refetched)
	}
}

func TestDeleteFlowCancel(t *testing.T) {
	ctx := context.Background()

	f := &fakeDeleter{}
	flow := directory.NewDeleteFlow(f, nil)

	flow.Request(user.User{ID: 3, Email: "spared@example.com"})
	flow.Cancel()

	if _, ok := flow.Pending(); ok {
		t.Fatal("Cancel should disarm the flow")
	}

	if err := flow.Confirm(ctx); err == nil {
		t.Fatal("Confirm after Cancel should fail")
	}

	if len(f.calls) != 0 {
		t.Fatal("nothing should reach the server after Cancel")
	}
}

func TestDeleteFlowFailureKeepsTarget(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "api_error_message_surfaced",
			err:     &client.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "User not found"},
			wantMsg: "User not found",
		},
		{
			name:    "transport_error_gets_fallback",
			err:     errors.New("connection refused"),
			wantMsg: "Failed to delete user",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			f := &fakeDeleter{
				deleteFn: func(ctx context.Context, id int64) error {
					return tt.err
				},
			}

			refetched := 0
			flow := directory.NewDeleteFlow(f, func(ctx context.Context) { refetched++ })

			flow.Request(user.User{ID: 9, Email: "gone@example.com"})

			if err := flow.Confirm(ctx); err == nil {
				t.Fatal("expected Confirm to fail")
			}

			if _, ok := flow.Pending(); !ok {
				t.Fatal("a failed delete should keep the flow armed")
			}

			if got := flow.Err(); got != tt.wantMsg {
				t.Fatalf("got message %q, want %q", got, tt.wantMsg)
			}

			if refetched != 0 {
				t.Fatal("a failed delete must not refetch")
			}
		})
	}
}

func TestEditFlowDiffChangedFieldsOnly(t *testing.T) {
	original := user.User{
		ID:        5,
		Email:     "old@example.com",
		FirstName: "Old",
		LastName:  "Name",
		Role:      user.RoleUser,
		Active:    true,
	}

	tests := []struct {
		name  string
		in    directory.EditInput
		check func(t *testing.T, patch user.Update)
	}{
		{
			name: "only_email_changed",
			in: directory.EditInput{
				Email:     "new@example.com",
				FirstName: "Old",
				LastName:  "Name",
				Role:      user.RoleUser,
				Active:    true,
			},
			check: func(t *testing.T, patch user.Update) {
				if patch.Email == nil || *patch.Email != "new@example.com" {
					t.Fatalf("got email %v, want new@example.com", patch.Email)
				}

				if patch.FirstName != nil || patch.LastName != nil || patch.Role != nil || patch.Active != nil || patch.Password != nil {
					t.Fatalf("unchanged fields leaked into the patch: %+v", patch)
				}
			},
		},
		{
			name: "role_and_active_changed",
			in: directory.EditInput{
				Email:     "old@example.com",
				FirstName: "Old",
				LastName:  "Name",
				Role:      user.RoleAdmin,
				Active:    false,
			},
			check: func(t *testing.T, patch user.Update) {
				if patch.Role == nil || *patch.Role != user.RoleAdmin {
					t.Fatalf("got role %v, want admin", patch.Role)
				}

				if patch.Active == nil || *patch.Active {
					t.Fatalf("got active %v, want false", patch.Active)
				}

				if patch.Email != nil {
					t.Fatal("unchanged email leaked into the patch")
				}
			},
		},
		{
			name: "password_included_when_set",
			in: directory.EditInput{
				Email:     "old@example.com",
				FirstName: "Old",
				LastName:  "Name",
				Role:      user.RoleUser,
				Active:    true,
				Password:  "hunter2hunter2",
			},
			check: func(t *testing.T, patch user.Update) {
				if patch.Password == nil || *patch.Password != "hunter2hunter2" {
					t.Fatalf("got password %v, want the new one", patch.Password)
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			flow := directory.NewEditFlow(&fakeUpdater{}, nil)
			flow.Open(original)

			patch, err := flow.Diff(tt.in)

			if err != nil {
				t.Fatalf("Diff: %v", err)
			}

			tt.check(t, patch)
		})
	}
}

func TestEditFlowUnchangedFormSkipsServer(t *testing.T) {
	ctx := context.Background()

	f := &fakeUpdater{}
	flow := directory.NewEditFlow(f, nil)

	original := user.User{
		ID:        5,
		Email:     "same@example.com",
		FirstName: "Same",
		LastName:  "Person",
		Role:      user.RoleUser,
		Active:    true,
	}

	flow.Open(original)

	got, err := flow.Submit(ctx, directory.EditInput{
		Email:     original.Email,
		FirstName: original.FirstName,
		LastName:  original.LastName,
		Role:      original.Role,
		Active:    original.Active,
	})

	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(f.calls) != 0 {
		t.Fatal("an unchanged form must not call the server")
	}

	if got.ID != original.ID {
		t.Fatalf("got user %d back, want the original", got.ID)
	}

	if _, ok := flow.Editing(); ok {
		t.Fatal("the form should close after an unchanged submit")
	}
}

func TestEditFlowSubmit(t *testing.T) {
	ctx := context.Background()

	refetched := 0

	f := &fakeUpdater{
		updateFn: func(ctx context.Context, id int64, patch user.Update) (user.User, error) {
			u := user.User{ID: id, Email: "old@example.com", Role: user.RoleUser, Active: true}

			if patch.Email != nil {
				u.Email = *patch.Email
			}

			return u, nil
		},
	}

	flow := directory.NewEditFlow(f, func(ctx context.Context) { refetched++ })

	flow.Open(user.User{ID: 5, Email: "old@example.com", Role: user.RoleUser, Active: true})

	updated, err := flow.Submit(ctx, directory.EditInput{
		Email:  "new@example.com",
		Role:   user.RoleUser,
		Active: true,
	})

	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if updated.Email != "new@example.com" {
		t.Fatalf("got email %q, want new@example.com", updated.Email)
	}

	if len(f.calls) != 1 {
		t.Fatalf("got %d update calls, want 1", len(f.calls))
	}

	if refetched != 1 {
		t.Fatalf("expected one refetch after update, got %d", refetched)
	}

	if _, ok := flow.Editing(); ok {
		t.Fatal("the form should close after a successful submit")
	}
}

func TestEditFlowFailureKeepsForm(t *testing.T) {
	ctx := context.Background()

	f := &fakeUpdater{
		updateFn: func(ctx context.Context, id int64, patch user.Update) (user.User, error) {
			return user.User{}, &client.APIError{Status: http.StatusConflict, Code: "email_taken", Message: "Email is already in use."}
		},
	}

	flow := directory.NewEditFlow(f, nil)

	flow.Open(user.User{ID: 5, Email: "old@example.com", Role: user.RoleUser, Active: true})

	_, err := flow.Submit(ctx, directory.EditInput{
		Email:  "taken@example.com",
		Role:   user.RoleUser,
		Active: true,
	})

	if err == nil {
		t.Fatal("expected Submit to fail")
	}

	if _, ok := flow.Editing(); !ok {
		t.Fatal("a failed submit should leave the form open")
	}

	if got := flow.Err(); got != "Email is already in use." {
		t.Fatalf("got message %q, want the server message", got)
	}
}
