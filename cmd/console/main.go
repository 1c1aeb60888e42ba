// Command console is an interactive admin terminal for the userdeck API:
// log in, browse and filter the user directory, edit and delete users.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/userdeck/userdeck/internal/admin/directory"
	"github.com/userdeck/userdeck/internal/admin/session"
	"github.com/userdeck/userdeck/internal/client"
	"github.com/userdeck/userdeck/internal/domain/user"
)

func main() {
	baseURL := os.Getenv("USERDECK_API_URL")

	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(baseURL)

	fmt.Printf("userdeck console (%s). Type 'help' for commands.\n", baseURL)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(app.prompt())

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if line == "quit" || line == "exit" {
			break
		}

		app.dispatch(ctx, line)

		if ctx.Err() != nil {
			break
		}
	}

	fmt.Println("bye")
}

type app struct {
	client  *client.Client
	session *session.Session
	query   *directory.Query
	view    *directory.View
	deletes *directory.DeleteFlow
	edits   *directory.EditFlow
}

func newApp(baseURL string) *app {
	c := client.New(baseURL)
	sess := session.New()
	query := directory.NewQuery(c)
	view := directory.NewView(sess, query, directory.DefaultLimit)

	refetch := func(ctx context.Context) {
		<-view.Refetch(ctx)
	}

	return &app{
		client:  c,
		session: sess,
		query:   query,
		view:    view,
		deletes: directory.NewDeleteFlow(c, refetch),
		edits:   directory.NewEditFlow(c, refetch),
	}
}

func (a *app) prompt() string {
	if u, ok := a.session.Current(); ok {
		return u.Email + "> "
	}

	return "> "
}

func (a *app) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "login":
		a.login(ctx, args)
	case "logout":
		a.logout(ctx)
	case "me":
		a.me(ctx)
	case "list":
		a.list(ctx)
	case "role":
		a.setRole(ctx, args)
	case "active":
		a.setActive(ctx, args)
	case "next":
		a.page(ctx, +1)
	case "prev":
		a.page(ctx, -1)
	case "edit":
		a.edit(ctx, args)
	case "delete":
		a.requestDelete(ctx, args)
	case "confirm":
		a.confirmDelete(ctx)
	case "cancel":
		a.deletes.Cancel()
		fmt.Println("cancelled")
	default:
		fmt.Printf("unknown command %q, try 'help'\n", cmd)
	}
}

func printHelp() {
	fmt.Print(`commands:
  login <email> <password>   authenticate
  logout                     end the session
  me                         show the logged-in user
  list                       show the current directory page
  role <admin|user|guest|->  filter by role ('-' clears)
  active <all|yes|no>        filter by status
  next / prev                page through results
  edit <id>                  edit a user (prompts per field)
  delete <id>                arm a delete; 'confirm' executes, 'cancel' aborts
  quit                       leave
`)
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}

	result, err := a.client.Login(ctx, args[0], args[1])

	if err != nil {
		var vErr *client.ValidationError

		switch {
		case errors.As(err, &vErr):
			for _, f := range vErr.Fields {
				fmt.Printf("  %s %s\n", f.Field, f.Message)
			}
		case errors.Is(err, client.ErrInvalidCredentials):
			fmt.Println("invalid email or password")
		default:
			fmt.Println("login failed:", err)
		}

		return
	}

	a.session.Set(result.User)

	fmt.Printf("logged in as %s (%s)\n", result.User.FullName(), result.User.Role)
}

func (a *app) logout(ctx context.Context) {
	err := a.client.Logout(ctx)
	a.session.Clear()

	if err != nil {
		fmt.Println("logged out locally; server said:", err)
		return
	}

	fmt.Println("logged out")
}

func (a *app) me(ctx context.Context) {
	u, err := a.client.Me(ctx)

	if err != nil {
		fmt.Println("whoami failed:", err)
		return
	}

	a.session.Set(u)

	fmt.Printf("%s <%s> role=%s active=%t\n", u.FullName(), u.Email, u.Role, u.Active)
}

// requireDirectory gates every directory command on an admin session.
func (a *app) requireDirectory() bool {
	if _, ok := a.session.Current(); !ok {
		fmt.Println("log in first")
		return false
	}

	if !a.view.Allowed() {
		fmt.Println("the user directory requires the admin role")
		return false
	}

	return true
}

func (a *app) list(ctx context.Context) {
	if !a.requireDirectory() {
		return
	}

	<-a.view.Load(ctx)
	a.view.Render(os.Stdout)
}

func (a *app) setRole(ctx context.Context, args []string) {
	if !a.requireDirectory() {
		return
	}

	if len(args) != 1 {
		fmt.Println("usage: role <admin|user|guest|->")
		return
	}

	role := args[0]

	if role == "-" {
		role = ""
	}

	done, err := a.view.SetRoleFilter(ctx, role)

	if err != nil {
		fmt.Println(err)
		return
	}

	<-done
	a.view.Render(os.Stdout)
}

func (a *app) setActive(ctx context.Context, args []string) {
	if !a.requireDirectory() {
		return
	}

	if len(args) != 1 {
		fmt.Println("usage: active <all|yes|no>")
		return
	}

	var filter directory.ActiveFilter

	switch args[0] {
	case "all":
		filter = directory.AllUsers
	case "yes":
		filter = directory.ActiveOnly
	case "no":
		filter = directory.InactiveOnly
	default:
		fmt.Println("usage: active <all|yes|no>")
		return
	}

	<-a.view.SetActiveFilter(ctx, filter)
	a.view.Render(os.Stdout)
}

func (a *app) page(ctx context.Context, dir int) {
	if !a.requireDirectory() {
		return
	}

	if dir > 0 {
		<-a.view.NextPage(ctx)
	} else {
		<-a.view.PrevPage(ctx)
	}

	a.view.Render(os.Stdout)
}

func parseID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}

	id, err := strconv.ParseInt(args[0], 10, 64)

	if err != nil || id < 1 {
		return 0, false
	}

	return id, true
}

func (a *app) requestDelete(ctx context.Context, args []string) {
	if !a.requireDirectory() {
		return
	}

	id, ok := parseID(args)

	if !ok {
		fmt.Println("usage: delete <id>")
		return
	}

	u, err := a.client.GetUser(ctx, id)

	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			fmt.Println("no such user")
			return
		}

		fmt.Println("lookup failed:", err)
		return
	}

	a.deletes.Request(u)

	fmt.Printf("delete %s <%s>? type 'confirm' to proceed or 'cancel' to abort\n", u.FullName(), u.Email)
}

func (a *app) confirmDelete(ctx context.Context) {
	target, ok := a.deletes.Pending()

	if !ok {
		fmt.Println("nothing to confirm")
		return
	}

	if err := a.deletes.Confirm(ctx); err != nil {
		fmt.Println(a.deletes.Err())
		return
	}

	fmt.Printf("deleted %s\n", target.Email)
	a.view.Render(os.Stdout)
}

func (a *app) edit(ctx context.Context, args []string) {
	if !a.requireDirectory() {
		return
	}

	id, ok := parseID(args)

	if !ok {
		fmt.Println("usage: edit <id>")
		return
	}

	u, err := a.client.GetUser(ctx, id)

	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			fmt.Println("no such user")
			return
		}

		fmt.Println("lookup failed:", err)
		return
	}

	a.edits.Open(u)

	in, err := promptEdit(u)

	if err != nil {
		a.edits.Cancel()
		fmt.Println("edit aborted:", err)
		return
	}

	updated, err := a.edits.Submit(ctx, in)

	if err != nil {
		var vErr *client.ValidationError

		if errors.As(err, &vErr) {
			for _, f := range vErr.Fields {
				fmt.Printf("  %s %s\n", f.Field, f.Message)
			}
		} else {
			fmt.Println(a.edits.Err())
		}

		a.edits.Cancel()
		return
	}

	fmt.Printf("saved %s <%s>\n", updated.FullName(), updated.Email)
	a.view.Render(os.Stdout)
}

// promptEdit asks per field; enter keeps the current value.
func promptEdit(u user.User) (directory.EditInput, error) {
	reader := bufio.NewReader(os.Stdin)

	in := directory.EditInput{
		Email:     promptField(reader, "email", u.Email),
		FirstName: promptField(reader, "first name", u.FirstName),
		LastName:  promptField(reader, "last name", u.LastName),
	}

	role := user.Role(promptField(reader, "role", string(u.Role)))

	if !role.Valid() {
		return directory.EditInput{}, fmt.Errorf("unknown role %q", role)
	}

	in.Role = role

	current := "no"

	if u.Active {
		current = "yes"
	}

	switch promptField(reader, "active (yes/no)", current) {
	case "yes":
		in.Active = true
	case "no":
		in.Active = false
	default:
		return directory.EditInput{}, errors.New("active must be yes or no")
	}

	in.Password = promptField(reader, "new password (blank keeps)", "")

	return in, nil
}

func promptField(reader *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("  %s [%s]: ", label, current)
	} else {
		fmt.Printf("  %s: ", label)
	}

	line, err := reader.ReadString('\n')

	if err != nil {
		return current
	}

	line = strings.TrimSpace(line)

	if line == "" {
		return current
	}

	return line
}
