package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/auth"
	"github.com/finishpro/admin-backend/internal/users"
	"github.com/finishpro/admin-backend/pkg/db/models"
)

const adminPasswordEnv = "FINISHPRO_ADMIN_PASSWORD"

var adminsCmd = &cobra.Command{
	Use:   "admins",
	Short: "Provision console admins",
}

var adminsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	Long: `Creates an admin user. The password is read from stdin when
--password-stdin is set, otherwise from FINISHPRO_ADMIN_PASSWORD.`,
	Example: `  echo "$PASSWORD" | opsctl admins create --email ops@finishpro.test \
    --first-name Ops --last-name Desk --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runAdminsCreate,
}

var adminsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Revoke console access for an admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminsDeactivate,
}

func init() {
	rootCmd.AddCommand(adminsCmd)
	adminsCmd.AddCommand(adminsCreateCmd, adminsDeactivateCmd)

	adminsCreateCmd.Flags().String("email", "", "admin email (required)")
	adminsCreateCmd.Flags().String("first-name", "", "first name (required)")
	adminsCreateCmd.Flags().String("last-name", "", "last name (required)")
	adminsCreateCmd.Flags().Bool("password-stdin", false, "read the password from stdin")
	for _, name := range []string{"email", "first-name", "last-name"} {
		_ = adminsCreateCmd.MarkFlagRequired(name)
	}
}

func runAdminsCreate(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	password, err := readPassword(cmd.InOrStdin(), fromStdin, lookupEnv)
	if err != nil {
		return err
	}

	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	provisioner, err := auth.NewAdminProvisioner(rt.db, rt.cfg.Password)
	if err != nil {
		return err
	}
	created, err := provisioner.Create(cmd.Context(), auth.CreateAdminRequest{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", created.Email, created.ID)
	return nil
}

func runAdminsDeactivate(cmd *cobra.Command, args []string) error {
	rt, closeFn, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	id, err := deactivateAdmin(cmd.Context(), users.NewRepository(rt.db.DB()), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deactivated admin %s\n", id)
	return nil
}

type adminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

func deactivateAdmin(ctx context.Context, store adminStore, email string) (uuid.UUID, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	user, err := store.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("no user with email %s", normalized)
		}
		return uuid.Nil, err
	}
	if !user.IsAdmin() {
		return uuid.Nil, fmt.Errorf("%s is not an admin", normalized)
	}
	if _, err := store.SetActive(ctx, user.ID, false); err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func readPassword(in io.Reader, fromStdin bool, env func(string) (string, bool)) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("empty password on stdin")
		}
		return password, nil
	}
	if password, ok := env(adminPasswordEnv); ok && password != "" {
		return password, nil
	}
	return "", fmt.Errorf("password required: pass --password-stdin or set %s", adminPasswordEnv)
}
