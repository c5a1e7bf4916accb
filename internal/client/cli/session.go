package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/clock"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// Status prints the session state without contacting the server.
func (a *App) Status(ctx context.Context) error {
	st := a.sessions.State()
	if !st.IsAuthenticated {
		fmt.Fprintf(a.out, "Status: %s\n", st.Status)
		return nil
	}
	left := clock.Remaining(st.SessionExpiry, time.Now()).Round(time.Second)
	fmt.Fprintf(a.out, "Status: %s\nUser: %s\nExpires: %s (in %s)\n",
		st.Status, st.User.Email, st.SessionExpiry.Local().Format(time.RFC1123), left)
	return nil
}

// WhoAmI reloads the user record from the server and prints it.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}
	printUser(a, u)
	return nil
}

// Profile prompts for a new name and email and saves them. Empty answers
// keep the current values.
func (a *App) Profile(ctx context.Context) error {
	st := a.sessions.State()
	if !st.IsAuthenticated {
		fmt.Fprintln(a.out, common.UserMessage(common.ErrNotAuthenticated))
		return common.ErrNotAuthenticated
	}

	req := models.UpdateProfileRequest{Email: st.User.Email}
	if st.User.Name != nil {
		req.Name = *st.User.Name
	}

	name, err := getSimpleText(a.reader, fmt.Sprintf("Name [%s]", req.Name), a.out)
	if err != nil {
		return err
	}
	if name != "" {
		req.Name = name
	}

	email, err := getSimpleText(a.reader, fmt.Sprintf("Email [%s]", req.Email), a.out)
	if err != nil {
		return err
	}
	if email != "" {
		req.Email = email
	}

	st, err = a.sessions.UpdateProfile(ctx, req)
	if err != nil {
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}
	fmt.Fprintln(a.out, "Profile updated.")
	printUser(a, st.User)
	return nil
}

// Refresh renews the session now.
func (a *App) Refresh(ctx context.Context) error {
	st, err := a.sessions.Refresh(ctx)
	if err != nil {
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}
	fmt.Fprintf(a.out, "Session renewed until %s.\n", st.SessionExpiry.Local().Format(time.RFC1123))
	return nil
}

// Extend answers an expiry warning: the countdown restarts and the session
// is renewed.
func (a *App) Extend(ctx context.Context) error {
	st, err := a.sessions.ExtendSession(ctx)
	if err != nil {
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}
	fmt.Fprintf(a.out, "Session extended until %s.\n", st.SessionExpiry.Local().Format(time.RFC1123))
	return nil
}

func printUser(a *App, u *models.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(a.out, "ID: %s\nEmail: %s\nName: %s\nRole: %s\nVerified: %t\n",
		u.ID, u.Email, u.DisplayName(), u.Role, u.EmailVerified)
}
