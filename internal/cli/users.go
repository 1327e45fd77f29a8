package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
)

var userFullName string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage dashboard users and roles",
	Long: `Manage profiles and role grants.

Roles form a hierarchy: super_admin covers admin covers usuario.

Examples:
  conversia users ensure user-ana ana@example.com --name "Ana López"
  conversia users grant user-ana admin
  conversia users role user-ana`,
}

var usersEnsureCmd = &cobra.Command{
	Use:   "ensure <profile-id> <email>",
	Short: "Create or refresh a profile",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersEnsure,
}

var usersGrantCmd = &cobra.Command{
	Use:   "grant <profile-id> <role>",
	Short: "Grant a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersGrant,
}

var usersRoleCmd = &cobra.Command{
	Use:   "role <profile-id>",
	Short: "Show a user's effective role",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRole,
}

func init() {
	usersEnsureCmd.Flags().StringVar(&userFullName, "name", "", "full name")

	usersCmd.AddCommand(usersEnsureCmd)
	usersCmd.AddCommand(usersGrantCmd)
	usersCmd.AddCommand(usersRoleCmd)
}

func runUsersEnsure(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var fullName *string
	if userFullName != "" {
		fullName = &userFullName
	}

	svc := service.NewUserService(dbClient, nil)
	profile, err := svc.EnsureProfile(ctx, args[0], args[1], fullName)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}

	fmt.Printf("Profile %s ready (%s)\n", args[0], profile.Email)
	return nil
}

func runUsersGrant(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	role := models.Role(args[1])
	if !role.Valid() {
		return fmt.Errorf("unknown role %q (use usuario, admin or super_admin)", args[1])
	}

	svc := service.NewUserService(dbClient, nil)
	if err := svc.Grant(ctx, args[0], role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}

	fmt.Printf("Granted %s to %s\n", role, args[0])
	return nil
}

func runUsersRole(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewUserService(dbClient, nil)
	role, err := svc.EffectiveRole(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get role: %w", err)
	}

	if role == "" {
		fmt.Printf("%s has no roles\n", args[0])
		return nil
	}
	fmt.Printf("%s: %s\n", args[0], role)
	return nil
}
