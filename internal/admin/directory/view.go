package directory

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/userdeck/userdeck/internal/admin/session"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// View owns the filter and pagination state of the directory screen and
// maps user interaction onto query parameters. The session is injected at
// construction; a nil session or query is a programming error.
type View struct {
	session *session.Session
	query   *Query

	role   string
	active ActiveFilter
	page   int
	limit  int
}

func NewView(sess *session.Session, query *Query, limit int) *View {
	if sess == nil {
		panic("directory: View requires a session")
	}

	if query == nil {
		panic("directory: View requires a query")
	}

	if limit < 1 {
		limit = DefaultLimit
	}

	return &View{
		session: sess,
		query:   query,
		page:    DefaultPage,
		limit:   limit,
	}
}

// Allowed reports whether the session user may see the directory at all.
func (v *View) Allowed() bool {
	return v.session.IsAdmin()
}

func (v *View) params() Params {
	return Params{
		Role:   v.role,
		Active: v.active,
		Page:   v.page,
		Limit:  v.limit,
	}
}

// Load pushes the view's current state into the query.
func (v *View) Load(ctx context.Context) <-chan struct{} {
	return v.query.SetParams(ctx, v.params())
}

// Refetch re-runs the current page, used by mutation flows on success.
func (v *View) Refetch(ctx context.Context) <-chan struct{} {
	return v.query.Refetch(ctx)
}

// SetRoleFilter narrows the directory to one role ("" clears the filter)
// and resets to the first page.
func (v *View) SetRoleFilter(ctx context.Context, role string) (<-chan struct{}, error) {
	if role != "" && !user.Role(role).Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	v.role = role
	v.page = DefaultPage

	return v.Load(ctx), nil
}

// SetActiveFilter switches the tri-state status filter and resets to the
// first page.
func (v *View) SetActiveFilter(ctx context.Context, f ActiveFilter) <-chan struct{} {
	v.active = f
	v.page = DefaultPage

	return v.Load(ctx)
}

// TotalPages reflects the last fetched total.
func (v *View) TotalPages() int {
	return v.query.Snapshot().TotalPages()
}

func (v *View) Page() int {
	return v.page
}

// HasPrev is false on the first page.
func (v *View) HasPrev() bool {
	return v.page > 1
}

// HasNext is false on the last page and on an empty directory.
func (v *View) HasNext() bool {
	return v.page < v.TotalPages()
}

// NextPage advances one page; at the last page it is a no-op.
func (v *View) NextPage(ctx context.Context) <-chan struct{} {
	if !v.HasNext() {
		done := make(chan struct{})
		close(done)
		return done
	}

	v.page++

	return v.Load(ctx)
}

// PrevPage goes back one page; at the first page it is a no-op.
func (v *View) PrevPage(ctx context.Context) <-chan struct{} {
	if !v.HasPrev() {
		done := make(chan struct{})
		close(done)
		return done
	}

	v.page--

	return v.Load(ctx)
}

// Render writes the current page as a text table.
func (v *View) Render(w io.Writer) {
	state := v.query.Snapshot()

	if state.Loading && len(state.Users) == 0 {
		fmt.Fprintln(w, "Loading users...")
		return
	}

	if state.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", state.Err)
		return
	}

	if len(state.Users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCREATED")

	for _, u := range state.Users {
		status := "inactive"

		if u.Active {
			status = "active"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.FullName(), u.Email, u.Role, status, u.CreatedAt.Format("2006-01-02"))
	}

	_ = tw.Flush()

	totalPages := state.TotalPages()

	if totalPages > 1 {
		fmt.Fprintf(w, "Page %d of %d (%d users)\n", v.page, totalPages, state.Total)
	} else {
		fmt.Fprintf(w, "Total: %d users\n", state.Total)
	}
}
