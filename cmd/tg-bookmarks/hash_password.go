package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/auth"
)

// NewHashPasswordCommand reads a password from stdin and prints its bcrypt
// hash for auth.admin_password_hash.
func NewHashPasswordCommand() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
				return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				return errors.New("password is empty")
			}

			hash, err := auth.NewAdapterWithCost("", cost).HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
