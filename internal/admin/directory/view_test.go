package directory_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/userdeck/userdeck/internal/admin/directory"
	"github.com/userdeck/userdeck/internal/admin/session"
	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

func adminSession() *session.Session {
	s := session.New()
	s.Set(user.User{ID: 1, Email: "admin@example.com", Role: user.RoleAdmin, Active: true})

	return s
}

// pagedLister slices a fixed user set the way the server would.
func pagedLister(all []user.User) *fakeLister {
	f := &fakeLister{}

	f.listFn = func(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error) {
		start := (q.Page - 1) * q.Limit

		if start > len(all) {
			start = len(all)
		}

		end := start + q.Limit

		if end > len(all) {
			end = len(all)
		}

		return client.DirectoryPage{
			Users: all[start:end],
			Total: len(all),
			Page:  q.Page,
			Limit: q.Limit,
		}, nil
	}

	return f
}

func TestViewAllowed(t *testing.T) {
	f := &fakeLister{}
	q := directory.NewQuery(f)

	guest := session.New()
	guest.Set(user.User{ID: 2, Email: "guest@example.com", Role: user.RoleGuest})

	tests := []struct {
		name string
		sess *session.Session
		want bool
	}{
		{name: "admin", sess: adminSession(), want: true},
		{name: "non_admin", sess: guest, want: false},
		{name: "logged_out", sess: session.New(), want: false},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			v := directory.NewView(tt.sess, q, 20)

			if got := v.Allowed(); got != tt.want {
				t.Fatalf("got Allowed()=%t, want %t", got, tt.want)
			}
		})
	}
}

func TestViewPaginationBounds(t *testing.T) {
	ctx := context.Background()

	// three users with a page size of two make exactly two pages
	all := makeUsers("a@example.com", "b@example.com", "c@example.com")

	f := pagedLister(all)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 2)

	<-v.Load(ctx)

	if got := v.TotalPages(); got != 2 {
		t.Fatalf("got %d total pages, want 2", got)
	}

	if v.HasPrev() {
		t.Fatal("first page should have no previous")
	}

	if !v.HasNext() {
		t.Fatal("first of two pages should have a next")
	}

	<-v.NextPage(ctx)

	if v.Page() != 2 {
		t.Fatalf("got page %d after NextPage, want 2", v.Page())
	}

	if v.HasNext() {
		t.Fatal("last page should have no next")
	}

	// advancing past the end is a no-op
	calls := f.callCount()

	<-v.NextPage(ctx)

	if v.Page() != 2 {
		t.Fatalf("NextPage past the end moved to page %d", v.Page())
	}

	if f.callCount() != calls {
		t.Fatal("NextPage past the end should not fetch")
	}

	<-v.PrevPage(ctx)

	if v.Page() != 1 {
		t.Fatalf("got page %d after PrevPage, want 1", v.Page())
	}

	// and back past the start
	<-v.PrevPage(ctx)

	if v.Page() != 1 {
		t.Fatalf("PrevPage past the start moved to page %d", v.Page())
	}
}

func TestViewSinglePageNeedsNoPagination(t *testing.T) {
	ctx := context.Background()

	// three users fit comfortably on one default-sized page
	all := makeUsers("a@example.com", "b@example.com", "c@example.com")

	f := pagedLister(all)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 20)

	<-v.Load(ctx)

	state := q.Snapshot()

	if len(state.Users) != 3 || state.Total != 3 {
		t.Fatalf("got %d rows / total %d, want 3/3", len(state.Users), state.Total)
	}

	if v.TotalPages() != 1 {
		t.Fatalf("got %d total pages, want 1", v.TotalPages())
	}

	if v.HasNext() || v.HasPrev() {
		t.Fatal("a single page needs no pagination controls")
	}
}

func TestViewEmptyDirectoryHasNoNext(t *testing.T) {
	ctx := context.Background()

	f := pagedLister(nil)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 20)

	<-v.Load(ctx)

	if v.HasNext() {
		t.Fatal("empty directory should have no next page")
	}

	if v.TotalPages() != 0 {
		t.Fatalf("got %d total pages for empty directory, want 0", v.TotalPages())
	}
}

func TestViewFiltersResetPage(t *testing.T) {
	ctx := context.Background()

	all := makeUsers("a@example.com", "b@example.com", "c@example.com")

	f := pagedLister(all)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 2)

	<-v.Load(ctx)
	<-v.NextPage(ctx)

	if v.Page() != 2 {
		t.Fatalf("setup: expected page 2, got %d", v.Page())
	}

	done, err := v.SetRoleFilter(ctx, "admin")

	if err != nil {
		t.Fatalf("SetRoleFilter: %v", err)
	}

	<-done

	if v.Page() != 1 {
		t.Fatalf("role filter should reset to page 1, got %d", v.Page())
	}

	if got := f.lastCall(t); got.Role != "admin" || got.Page != 1 {
		t.Fatalf("got role=%q page=%d, want admin/1", got.Role, got.Page)
	}

	<-v.NextPage(ctx)
	<-v.SetActiveFilter(ctx, directory.InactiveOnly)

	if v.Page() != 1 {
		t.Fatalf("status filter should reset to page 1, got %d", v.Page())
	}

	got := f.lastCall(t)

	if got.Active == nil || *got.Active {
		t.Fatalf("got active=%v, want false", got.Active)
	}
}

func TestViewRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()

	f := &fakeLister{}
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 20)

	_, err := v.SetRoleFilter(ctx, "superuser")

	if err == nil {
		t.Fatal("expected an error for an unknown role")
	}

	if f.callCount() != 0 {
		t.Fatal("an invalid role must not trigger a fetch")
	}
}

func TestViewRender(t *testing.T) {
	ctx := context.Background()

	all := makeUsers("a@example.com", "b@example.com", "c@example.com")
	all[0].FirstName = "Ada"
	all[0].LastName = "Lovelace"

	f := pagedLister(all)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 2)

	<-v.Load(ctx)

	var buf bytes.Buffer
	v.Render(&buf)

	out := buf.String()

	if !strings.Contains(out, "Ada Lovelace") {
		t.Fatalf("expected the user's name in the table, got:\n%s", out)
	}

	if !strings.Contains(out, "Page 1 of 2") {
		t.Fatalf("expected pagination footer, got:\n%s", out)
	}
}

func TestViewRenderEmpty(t *testing.T) {
	ctx := context.Background()

	f := pagedLister(nil)
	q := directory.NewQuery(f)
	v := directory.NewView(adminSession(), q, 20)

	<-v.Load(ctx)

	var buf bytes.Buffer
	v.Render(&buf)

	if !strings.Contains(buf.String(), "No users found") {
		t.Fatalf("expected empty-state message, got:\n%s", buf.String())
	}
}
