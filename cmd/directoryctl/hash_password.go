package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"directory/internal/adapters/auth"
)

var readPasswordFunc = term.ReadPassword // mockable

var errPasswordMismatch = errors.New("passwords do not match")

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for DIRECTORY_ADD_STAFF_PASSWORD_HASH",
		Long: `hash-password prompts twice for the add-staff password without echo and
prints the bcrypt hash to put in DIRECTORY_ADD_STAFF_PASSWORD_HASH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			pwd, err := readPasswordFunc(stdinFd)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.ErrOrStderr(), "Repeat password: ")
			again, err := readPasswordFunc(stdinFd)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if string(pwd) != string(again) {
				return errPasswordMismatch
			}
			hash, err := auth.HashPassword(string(pwd))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hash)
			return nil
		},
	}
}
