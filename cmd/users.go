package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership-portal/core/config"
	"membership-portal/core/logger"
	"membership-portal/feature/identity"
	"membership-portal/feature/profile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	userEmail    string
	userPassword string
	userName     string
	userRole     string
)

// usersCmd groups member account commands.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage member accounts",
}

// usersAddCmd registers a credential and seeds its profile.
var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a member account",
	Long: `Registers a credential for the given email and writes its profile to both stores.

Examples:
  users add --email ann@club.org --password s3cret --name "Ann" --role EB`,
	RunE: runUsersAdd,
}

func init() {
	usersAddCmd.Flags().StringVar(&userEmail, "email", "", "Account email (required)")
	usersAddCmd.Flags().StringVar(&userPassword, "password", "", "Account password (required)")
	usersAddCmd.Flags().StringVar(&userName, "name", "", "Display name (defaults to the email local part)")
	usersAddCmd.Flags().StringVar(&userRole, "role", string(profile.RoleMember), "Role: EB, EC, Core or Member")
	_ = usersAddCmd.MarkFlagRequired("email")
	_ = usersAddCmd.MarkFlagRequired("password")

	usersCmd.AddCommand(usersAddCmd)
	RootCmd.AddCommand(usersCmd)
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	role, ok := profile.ParseRole(userRole)
	if !ok {
		return fmt.Errorf("invalid role %q", userRole)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := openStores(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.migrate(); err != nil {
		return err
	}

	cred, err := identity.NewDirectory(st.db, cfg.Identity.BcryptCost).Register(ctx, userEmail, userPassword)
	if errors.Is(err, identity.ErrEmailTaken) {
		return fmt.Errorf("%s is already registered", identity.NormalizeEmail(userEmail))
	}
	if err != nil {
		return fmt.Errorf("failed to register credential: %w", err)
	}

	rec := profile.Record{
		ID:        cred.ID,
		Email:     cred.Email,
		Name:      profile.DisplayName(userName, cred.Email),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	err = profile.NewRepository(st.profiles, st.mirror, l).Save(ctx, rec)
	if profile.IsMirrorOnly(err) {
		l.Warn("Profile saved without legacy mirror; run reconcile profiles --backfill", zap.Error(err))
	} else if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	l.Info("Registered member",
		zap.String("id", cred.ID),
		zap.String("email", cred.Email),
		zap.String("role", string(role)),
	)
	return nil
}
