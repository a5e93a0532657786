// Command admin creates an administrator account or promotes an existing
// user. The password is read from the terminal without echo, or from
// ADMIN_PASSWORD when stdin is not a terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/Skotchmaster/news_guard/internal/app"
	"github.com/Skotchmaster/news_guard/internal/config"
	"github.com/Skotchmaster/news_guard/internal/hash"
	"github.com/Skotchmaster/news_guard/internal/repo"
	"github.com/Skotchmaster/news_guard/internal/service"
)

func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", "", "admin email (required when creating)")
	promote := flag.Bool("promote", false, "grant admin to an existing user instead of creating one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := app.OpenStore(ctx, cfg, cfg.AutoMigrate)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer app.Close(db)
	store := repo.New(db)

	if *promote {
		user, err := store.FindByUsername(ctx, *username)
		if err != nil {
			log.Fatalf("find %s: %v", *username, err)
		}
		if err := store.SetAdmin(ctx, user.ID, true); err != nil {
			log.Fatalf("promote: %v", err)
		}
		fmt.Printf("%s is now an admin\n", user.Username)
		return
	}

	password, err := readPassword()
	if err != nil {
		log.Fatalf("password: %v", err)
	}
	hasher, err := hash.New(cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}

	svc := &service.AuthService{Users: store, Hasher: hasher}
	user, err := svc.Register(ctx, *username, *email, password)
	if err != nil {
		var ce *service.ConflictError
		if errors.As(err, &ce) {
			log.Fatalf("%s already taken; rerun with -promote to grant admin", ce.Field)
		}
		log.Fatalf("create admin: %v", err)
	}
	if err := store.SetAdmin(ctx, user.ID, true); err != nil {
		log.Fatalf("promote: %v", err)
	}
	fmt.Printf("created admin %s (id %d)\n", user.Username, user.ID)
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
			return p, nil
		}
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
