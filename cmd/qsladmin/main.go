// qsladmin is the bootstrap and maintenance tool for user accounts. It works
// directly against the configured database, so the server does not need to be
// running.
//
//	qsladmin create-admin -username root
//	qsladmin create-user -username alice -callsign oe1abc
//	qsladmin set-password -username alice
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"
	_ "modernc.org/sqlite"

	"github.com/achildrenmile/qslcardgenerator/internal/server/config"
	"github.com/achildrenmile/qslcardgenerator/internal/server/repositories"
	"github.com/achildrenmile/qslcardgenerator/internal/server/services"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.LoadConfigNoFlags()
	ctx := context.Background()

	db, err := repositories.Open(cfg.DatabaseDSN)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	rm := repositories.NewManager(cfg.DatabaseDSN)
	if err := repositories.RunMigrations(ctx, db, rm); err != nil {
		fatal(err)
	}
	users := services.NewUserService(db, rm, cfg)

	switch os.Args[1] {
	case "create-admin":
		err = createUser(ctx, users, os.Args[2:], true)
	case "create-user":
		err = createUser(ctx, users, os.Args[2:], false)
	case "set-password":
		err = setPassword(ctx, users, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: qsladmin <create-admin|create-user|set-password> [options]")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "qsladmin:", err)
	os.Exit(1)
}

func createUser(ctx context.Context, users *services.UserService, args []string, forceAdmin bool) error {
	name := "create-user"
	if forceAdmin {
		name = "create-admin"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	username := fs.String("username", "", "username of the new account")
	callsign := fs.String("callsign", "", "callsign to bind to the account")
	isAdmin := fs.Bool("admin", false, "grant the admin flag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	password, err := readPassword("New password: ")
	if err != nil {
		return err
	}

	var cs *string
	if *callsign != "" {
		cs = callsign
	}
	user, err := users.CreateUser(ctx, *username, password, cs, forceAdmin || *isAdmin)
	if err != nil {
		return err
	}

	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("created %s %q (id %s)\n", role, user.Username, user.ID)
	return nil
}

func setPassword(ctx context.Context, users *services.UserService, args []string) error {
	fs := flag.NewFlagSet("set-password", flag.ExitOnError)
	username := fs.String("username", "", "account to update")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	user, err := users.GetUserByUsername(ctx, *username)
	if err != nil {
		return err
	}

	password, err := readPassword("New password: ")
	if err != nil {
		return err
	}
	if err := users.SetPassword(ctx, user.ID, password); err != nil {
		return err
	}

	fmt.Printf("password updated for %q; all sessions revoked\n", user.Username)
	return nil
}

// readPassword prompts without echo on a terminal, and falls back to reading
// a line when input is piped.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
