package directory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/userdeck/userdeck/internal/admin/directory"
	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// Fake implementation of the directory.Lister interface

type fakeLister struct {
	mu     sync.Mutex
	calls  []client.ListUsersQuery
	listFn func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error)
}

func (f *fakeLister) ListUsers(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	fn := f.listFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, q)
	}

	return client.DirectoryPage{Page: q.Page, Limit: q.Limit}, nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f *fakeLister) lastCall(t *testing.T) client.ListUsersQuery {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.calls) == 0 {
		t.Fatal("lister was never called")
	}

	return f.calls[len(f.calls)-1]
}

func makeUsers(emails ...string) []user.User {
	now := time.Now().UTC()
	users := make([]user.User, 0, len(emails))

	for i, email := range emails {
		users = append(users, user.User{
			ID:        int64(i + 1),
			Email:     email,
			Role:      user.RoleUser,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return users
}

func TestQuerySetParams(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	q := directory.NewQuery(f)

	<-q.SetParams(ctx, directory.Params{Role: "admin", Active: directory.ActiveOnly, Page: 2, Limit: 10})

	got := f.lastCall(t)

	if got.Role != "admin" {
		t.Fatalf("got role %q, want admin", got.Role)
	}

	if got.Active == nil || !*got.Active {
		t.Fatalf("got active %v, want true", got.Active)
	}

	if got.Page != 2 || got.Limit != 10 {
		t.Fatalf("got page=%d limit=%d, want 2/10", got.Page, got.Limit)
	}
}

func TestQuerySetParamsDefaults(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	q := directory.NewQuery(f)

	<-q.SetParams(ctx, directory.Params{})

	got := f.lastCall(t)

	if got.Page != directory.DefaultPage || got.Limit != directory.DefaultLimit {
		t.Fatalf("got page=%d limit=%d, want defaults %d/%d", got.Page, got.Limit, directory.DefaultPage, directory.DefaultLimit)
	}

	if got.Role != "" || got.Active != nil {
		t.Fatalf("expected no filters by default, got role=%q active=%v", got.Role, got.Active)
	}
}

func TestQueryUnchangedParamsDoNotRefetch(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	q := directory.NewQuery(f)

	p := directory.Params{Role: "user", Page: 1, Limit: 20}

	<-q.SetParams(ctx, p)
	<-q.SetParams(ctx, p)

	if got := f.callCount(); got != 1 {
		t.Fatalf("expected 1 fetch for repeated params, got %d", got)
	}
}

func TestQueryRefetchAlwaysFetches(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	q := directory.NewQuery(f)

	p := directory.Params{Role: "guest", Page: 3, Limit: 5}

	<-q.SetParams(ctx, p)
	<-q.Refetch(ctx)

	if got := f.callCount(); got != 2 {
		t.Fatalf("expected refetch to hit the lister again, got %d calls", got)
	}

	got := f.lastCall(t)

	if got.Role != "guest" || got.Page != 3 || got.Limit != 5 {
		t.Fatalf("refetch did not reuse last params: %+v", got)
	}
}

// The core race: a slow response for old parameters must never overwrite
// the result of a newer fetch, even when it arrives later.

func TestQueryStaleResponseDiscarded(t *testing.T) {
	ctx := context.Background()

	slowGate := make(chan struct{})

	f := &fakeLister{}
	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		if q.Role == "" {
			<-slowGate

			return client.DirectoryPage{
				Users: makeUsers("stale@example.com"),
				Total: 1,
				Page:  q.Page,
				Limit: q.Limit,
			}, nil
		}

		return client.DirectoryPage{
			Users: makeUsers("fresh-1@example.com", "fresh-2@example.com"),
			Total: 2,
			Page:  q.Page,
			Limit: q.Limit,
		}, nil
	}

	q := directory.NewQuery(f)

	slow := q.SetParams(ctx, directory.Params{})
	fast := q.SetParams(ctx, directory.Params{Role: "admin"})

	<-fast

	state := q.Snapshot()

	if state.Total != 2 {
		t.Fatalf("got total %d after fast fetch, want 2", state.Total)
	}

	// now let the stale response land
	close(slowGate)
	<-slow

	state = q.Snapshot()

	if state.Total != 2 || len(state.Users) != 2 {
		t.Fatalf("stale response overwrote state: total=%d users=%d", state.Total, len(state.Users))
	}

	if state.Users[0].Email != "fresh-1@example.com" {
		t.Fatalf("got user %q, want the fresh page", state.Users[0].Email)
	}
}

func TestQueryLoadingFlag(t *testing.T) {
	ctx := context.Background()

	gate := make(chan struct{})

	f := &fakeLister{}
	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		<-gate
		return client.DirectoryPage{Page: q.Page, Limit: q.Limit}, nil
	}

	q := directory.NewQuery(f)

	done := q.SetParams(ctx, directory.Params{})

	if !q.Snapshot().Loading {
		t.Fatal("expected Loading=true while the fetch is in flight")
	}

	close(gate)
	<-done

	if q.Snapshot().Loading {
		t.Fatal("expected Loading=false after the fetch resolved")
	}
}

func TestQueryErrorKeepsRows(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		return client.DirectoryPage{
			Users: makeUsers("keep@example.com"),
			Total: 1,
			Page:  q.Page,
			Limit: q.Limit,
		}, nil
	}

	q := directory.NewQuery(f)

	<-q.SetParams(ctx, directory.Params{})

	f.mu.Lock()
	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		return client.DirectoryPage{}, errors.New("network down")
	}
	f.mu.Unlock()

	<-q.Refetch(ctx)

	state := q.Snapshot()

	if state.Err == nil {
		t.Fatal("expected an error after failed refetch")
	}

	if len(state.Users) != 1 || state.Users[0].Email != "keep@example.com" {
		t.Fatalf("failed refetch dropped the displayed rows: %+v", state.Users)
	}
}

func TestQueryErrorClearedBySuccess(t *testing.T) {
	ctx := context.Background()

	failing := true

	f := &fakeLister{}
	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		if failing {
			return client.DirectoryPage{}, errors.New("network down")
		}

		return client.DirectoryPage{Total: 4, Page: q.Page, Limit: q.Limit}, nil
	}

	q := directory.NewQuery(f)

	<-q.SetParams(ctx, directory.Params{})

	if q.Snapshot().Err == nil {
		t.Fatal("expected error state after failed fetch")
	}

	failing = false

	<-q.Refetch(ctx)

	state := q.Snapshot()

	if state.Err != nil {
		t.Fatalf("expected error cleared after success, got %v", state.Err)
	}

	if state.Total != 4 {
		t.Fatalf("got total %d, want 4", state.Total)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name  string
		total int
		limit int
		want  int
	}{
		{name: "empty", total: 0, limit: 20, want: 0},
		{name: "one_partial_page", total: 3, limit: 20, want: 1},
		{name: "exact_fit", total: 40, limit: 20, want: 2},
		{name: "remainder_rounds_up", total: 41, limit: 20, want: 3},
		{name: "zero_limit", total: 10, limit: 0, want: 0},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			s := directory.State{Total: tt.total, Limit: tt.limit}

			if got := s.TotalPages(); got != tt.want {
				t.Fatalf("got %d pages, want %d", got, tt.want)
			}
		})
	}
}

func TestActiveFilterParam(t *testing.T) {
	if directory.AllUsers.Param() != nil {
		t.Fatal("AllUsers should map to no query param")
	}

	if v := directory.ActiveOnly.Param(); v == nil || !*v {
		t.Fatalf("ActiveOnly should map to true, got %v", v)
	}

	if v := directory.InactiveOnly.Param(); v == nil || *v {
		t.Fatalf("InactiveOnly should map to false, got %v", v)
	}
}
