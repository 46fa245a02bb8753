package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/portfolio/internal/model"
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	Long: `Sign in and keep the session in client storage.

Examples:
  portfolio signin --email admin@example.com --password admin123`,
	RunE: runSignin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE:  runSignup,
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the stored session",
	RunE:  runSignout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the signed-in user. The profile is reloaded, so role and name
changes made elsewhere are picked up. In mock mode an account created by an
earlier invocation is not in the reseeded data; its stored profile is shown.`,
	RunE: runWhoami,
}

func init() {
	for _, cmd := range []*cobra.Command{signinCmd, signupCmd} {
		cmd.Flags().String("email", "", "account email")
		cmd.Flags().String("password", "", "account password")
		_ = cmd.MarkFlagRequired("email")
		_ = cmd.MarkFlagRequired("password")
	}
	signupCmd.Flags().String("name", "", "full name (optional)")

	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(signoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runSignin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	s, err := client.session.SignIn(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	return printSession(s)
}

func runSignup(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")

	s, err := client.session.SignUp(cmd.Context(), email, password, name)
	if err != nil {
		return err
	}
	return printSession(s)
}

func runSignout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// Load the stored session so the manager knows which token to revoke.
	if _, err := client.session.Session(ctx); err != nil {
		return err
	}
	if err := client.session.SignOut(ctx); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]bool{"signed_out": true})
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := client.session.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	if s == nil {
		if jsonOut {
			return printJSON(map[string]any{"user": nil})
		}
		fmt.Println("Not signed in")
		return nil
	}
	return printSession(s)
}

func printSession(s *model.Session) error {
	if jsonOut {
		return printJSON(s)
	}
	name := s.User.DisplayName
	if name == "" {
		name = s.User.Email
	}
	fmt.Printf("Signed in as %s (%s)\n", name, s.User.Role)
	fmt.Printf("  User:    %s\n", s.User.ID)
	fmt.Printf("  Email:   %s\n", s.User.Email)
	fmt.Printf("  Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
