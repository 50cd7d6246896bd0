package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrPasswordMismatch = errors.New("passwords do not match")

// Bootstrapper is satisfied by *services.UserService.
type Bootstrapper interface {
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

// Options pre-fill answers. Empty fields are prompted for.
type Options struct {
	Username string
	Password string
}

// Run asks for whatever opts leaves out and creates the administrator
// account if it does not exist yet.
func Run(ctx context.Context, b Bootstrapper, opts Options, in *bufio.Reader, w io.Writer) error {
	username := opts.Username
	if username == "" {
		var err error
		if username, err = GetSimpleText(in, "Admin username", w); err != nil {
			return err
		}
	}

	password := opts.Password
	if password == "" {
		first, err := GetPassword("Admin password", w)
		if err != nil {
			return err
		}
		second, err := GetPassword("Repeat password", w)
		if err != nil {
			return err
		}
		if first != second {
			return ErrPasswordMismatch
		}
		password = first
	}

	created, err := b.EnsureAdmin(ctx, username, password)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(w, "Admin %q created\n", username)
	} else {
		fmt.Fprintf(w, "User %q already exists, left unchanged\n", username)
	}
	return nil
}
