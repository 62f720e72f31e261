// Narzędzie operatorskie do zarządzania kontami administratorów.
// Działa bezpośrednio na bazie, z pominięciem API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"skrytka-plikow/internal/auth"
	"skrytka-plikow/internal/config"
	"skrytka-plikow/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  admin set-admin <username>")
	fmt.Fprintln(os.Stderr, "  admin remove-admin <username>")
	fmt.Fprintln(os.Stderr, "  admin list-admins")
	fmt.Fprintln(os.Stderr, "  admin create-admin <email> [--password <password>]")
	fmt.Fprintln(os.Stderr, "  admin reset-key <username>")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := database.NewStore(pool)

	var cmdErr error
	switch os.Args[1] {
	case "set-admin":
		cmdErr = runSetAdmin(ctx, store, os.Args[2:], true)
	case "remove-admin":
		cmdErr = runSetAdmin(ctx, store, os.Args[2:], false)
	case "list-admins":
		cmdErr = runListAdmins(ctx, store)
	case "create-admin":
		cmdErr = runCreateAdmin(ctx, store, os.Args[2:])
	case "reset-key":
		cmdErr = runResetKey(ctx, store, os.Args[2:])
	default:
		printUsage()
		os.Exit(2)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

func runSetAdmin(ctx context.Context, store *database.Store, args []string, makeAdmin bool) error {
	if len(args) != 1 {
		printUsage()
		return errors.New("expected exactly one username argument")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	if makeAdmin && user.IsAdmin {
		fmt.Printf("User '%s' is already an admin.\n", username)
		return nil
	}
	if !makeAdmin && !user.IsAdmin {
		fmt.Printf("User '%s' is not an admin.\n", username)
		return nil
	}

	if _, err := store.SetUserAdmin(ctx, user.ID, makeAdmin); err != nil {
		return err
	}

	if makeAdmin {
		fmt.Printf("Successfully set '%s' as admin.\n", username)
	} else {
		fmt.Printf("Successfully removed admin rights from '%s'.\n", username)
	}
	return nil
}

func runListAdmins(ctx context.Context, store *database.Store) error {
	admins, err := store.ListAdmins(ctx)
	if err != nil {
		return err
	}

	if len(admins) == 0 {
		fmt.Println("No admin users found.")
		return nil
	}

	fmt.Println("Admin users:")
	for _, admin := range admins {
		fmt.Printf("  %s (%s)\n", admin.Username, admin.Email)
	}
	return nil
}

func runCreateAdmin(ctx context.Context, store *database.Store, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	password := fs.String("password", "", "password for the new admin (a random key is generated when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		printUsage()
		return errors.New("expected exactly one email argument")
	}
	email := fs.Arg(0)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("'%s' does not look like an email address", email)
	}

	existing, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("email '%s' is already registered", email)
	}

	secret := *password
	if secret == "" {
		secret, err = auth.GenerateCode(auth.KeyLength)
		if err != nil {
			return err
		}
	}

	hashedSecret, err := auth.HashPassword(secret)
	if err != nil {
		return err
	}

	for i := 0; i < 10; i++ {
		username, err := auth.GenerateCode(auth.UsernameLength)
		if err != nil {
			return err
		}

		user, err := store.CreateUser(ctx, database.CreateUserParams{
			Username:     username,
			Email:        email,
			PasswordHash: hashedSecret,
			IsAdmin:      true,
		})
		if err != nil {
			if errors.Is(err, database.ErrUsernameTaken) {
				continue
			}
			if errors.Is(err, database.ErrEmailTaken) {
				return fmt.Errorf("email '%s' is already registered", email)
			}
			return err
		}

		fmt.Println("New admin user created successfully!")
		fmt.Printf("  Username: %s\n", user.Username)
		fmt.Printf("  Email:    %s\n", user.Email)
		fmt.Printf("  Password: %s\n", secret)
		fmt.Println("Store these credentials safely, the password will not be shown again.")
		return nil
	}

	return errors.New("could not generate a unique username, try again")
}

// Klucz dostępu nie jest nigdzie przechowywany jawnie, więc zgubiony klucz
// można tylko wymienić na nowy.
func runResetKey(ctx context.Context, store *database.Store, args []string) error {
	if len(args) != 1 {
		printUsage()
		return errors.New("expected exactly one username argument")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user '%s' not found", username)
	}

	newKey, err := auth.GenerateCode(auth.KeyLength)
	if err != nil {
		return err
	}
	hashedKey, err := auth.HashPassword(newKey)
	if err != nil {
		return err
	}

	if err := store.UpdateUserPassword(ctx, user.ID, hashedKey); err != nil {
		return err
	}

	fmt.Printf("New access key for '%s': %s\n", username, newKey)
	fmt.Println("Store it safely, the key will not be shown again.")
	return nil
}
