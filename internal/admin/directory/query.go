// Package directory implements the client side of the user directory: a
// parameterised page query, the view state around it, and the edit/delete
// flows that reconcile displayed data with the server by refetching.
package directory

import (
	"context"
	"sync"

	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

// ActiveFilter is the tri-state status filter. Modelled as an enum so
// "unset" can never be confused with "inactive".
type ActiveFilter int

const (
	AllUsers ActiveFilter = iota
	ActiveOnly
	InactiveOnly
)

func (f ActiveFilter) Param() *bool {
	switch f {
	case ActiveOnly:
		v := true
		return &v
	case InactiveOnly:
		v := false
		return &v
	}

	return nil
}

func (f ActiveFilter) String() string {
	switch f {
	case ActiveOnly:
		return "active"
	case InactiveOnly:
		return "inactive"
	}

	return "all"
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Params keys one directory fetch. Two equal Params values describe the
// same page, so re-setting them is a no-op.
type Params struct {
	Role   string
	Active ActiveFilter
	Page   int
	Limit  int
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}

	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}

	return p
}

func (p Params) query() client.ListUsersQuery {
	return client.ListUsersQuery{
		Role:   p.Role,
		Active: p.Active.Param(),
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

// Lister is the remote half of the query, satisfied by *client.Client.
type Lister interface {
	ListUsers(ctx context.Context, q client.ListUsersQuery) (client.DirectoryPage, error)
}

// State is a point-in-time snapshot of the query.
type State struct {
	Users   []user.User
	Total   int
	Page    int
	Limit   int
	Loading bool
	Err     error
}

// TotalPages is ceil(total/limit); zero when the directory is empty.
func (s State) TotalPages() int {
	if s.Limit < 1 || s.Total < 1 {
		return 0
	}

	return (s.Total + s.Limit - 1) / s.Limit
}

// Query fetches directory pages and exposes loading/error/result state.
//
// Every fetch is stamped with a monotonically increasing sequence number
// and only the newest stamp may write state, so the displayed page always
// matches the last parameters the user picked no matter in which order the
// responses come back.
type Query struct {
	lister Lister

	mu        sync.Mutex
	params    Params
	hasParams bool
	seq       uint64
	state     State
}

func NewQuery(lister Lister) *Query {
	if lister == nil {
		panic("directory: nil lister")
	}

	return &Query{lister: lister}
}

// SetParams switches the query to new parameters. Unchanged parameters do
// not refetch. The returned channel closes when this particular fetch has
// resolved (won or lost the sequence race either way).
func (q *Query) SetParams(ctx context.Context, p Params) <-chan struct{} {
	p = p.normalized()

	q.mu.Lock()

	if q.hasParams && q.params == p {
		q.mu.Unlock()

		done := make(chan struct{})
		close(done)
		return done
	}

	q.params = p
	q.hasParams = true

	return q.fetchLocked(ctx, p)
}

// Refetch re-runs the query with the last-used parameters. This is the
// only reconciliation path after a mutation: no cache surgery, a full
// re-fetch of the current page.
func (q *Query) Refetch(ctx context.Context) <-chan struct{} {
	q.mu.Lock()

	p := q.params

	if !q.hasParams {
		p = Params{}.normalized()
		q.params = p
		q.hasParams = true
	}

	return q.fetchLocked(ctx, p)
}

// Snapshot returns the current query state.
func (q *Query) Snapshot() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.state
}

// Params returns the last-set parameters (normalized defaults if none).
func (q *Query) Params() Params {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.hasParams {
		return Params{}.normalized()
	}

	return q.params
}

// fetchLocked starts a fetch for p. Caller holds q.mu; it is released here.
func (q *Query) fetchLocked(ctx context.Context, p Params) <-chan struct{} {
	q.seq++
	seq := q.seq
	q.state.Loading = true
	q.mu.Unlock()

	done := make(chan struct{})

	go func() {
		defer close(done)

		page, err := q.lister.ListUsers(ctx, p.query())

		q.mu.Lock()
		defer q.mu.Unlock()

		if seq != q.seq {
			// a newer fetch was issued; this response is stale
			return
		}

		q.state.Loading = false

		if err != nil {
			// keep the previously displayed rows, surface the error
			q.state.Err = err
			return
		}

		q.state = State{
			Users: page.Users,
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
		}
	}()

	return done
}
