package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// getSimpleText, getPassword, getSecret and getConfirmation are indirections
// used to facilitate testing. They point to interactive input helpers and
// can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getSecret = GetSecret
var getConfirmation = GetConfirmation

// Register prompts for an email, a password twice and terms acceptance, and
// creates the account. The server validates the form; its reason is shown
// as is. Password buffers are wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getSecret(a.out, "Confirm password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	agree, err := getConfirmation(a.reader, "Do you accept the terms of service?", a.out)
	if err != nil {
		return err
	}

	st, err := a.sessions.Register(ctx, models.RegisterRequest{
		Email:           email,
		Password:        string(password),
		ConfirmPassword: string(confirm),
		AgreeToTerms:    agree,
	})
	if err != nil {
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", st.User.DisplayName())
	return nil
}

// Login prompts for credentials and a remember-me choice and authenticates.
// A failure leaves any current session untouched.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	remember, err := getConfirmation(a.reader, "Remember me?", a.out)
	if err != nil {
		return err
	}

	st, err := a.sessions.Login(ctx, models.LoginRequest{
		Email:      email,
		Password:   string(password),
		RememberMe: remember,
	})
	if err != nil {
		a.log.Debug(ctx, "login unsuccessful", "error", err)
		fmt.Fprintln(a.out, common.UserMessage(err))
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s.\n", st.User.DisplayName())
	return nil
}

// Logout always succeeds locally.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "You are not logged in.")
		return nil
	}
	a.sessions.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
