// Command collabctl is the terminal client for the ProHub authentication
// core: local registration, password and OAuth2 sign-in, session
// inspection and directory queries.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/prohub/collabauth"
	"github.com/prohub/collabauth/directory"
	o2 "github.com/prohub/collabauth/oauth2"
	fsstore "github.com/prohub/collabauth/stores/fs"
)

const usage = `usage: collabctl <command>

commands:
  register   create a local account
  login      sign in with email and password
  oauth      sign in with a provider (google, microsoft, github, orcid)
  whoami     show the current session
  logout     clear the current session
  users      list locally registered accounts
  search     search the user directory
  stats      summarize the user directory
`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles the wired components for command handlers.
type app struct {
	cfg         *collabauth.Config
	svc         *collabauth.Service
	session     *collabauth.SessionContext
	registry    *fsstore.RegistrationStore
	credentials *fsstore.CredentialStore
	directory   *directory.Client
}

func run(ctx context.Context, command string, args []string, logger *slog.Logger) error {
	cfg, err := collabauth.LoadConfig()
	if err != nil {
		return err
	}

	storePath := cfg.StorePath
	if storePath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		storePath = filepath.Join(base, "collabauth")
	}

	credentials, err := fsstore.NewCredentialStore(storePath, logger)
	if err != nil {
		return err
	}
	registry, err := fsstore.NewRegistrationStore(storePath, logger)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	dir := directory.NewClient(cfg.DirectoryURL,
		directory.WithHTTPClient(httpClient),
		directory.WithLogger(logger))

	opts := []collabauth.ServiceOption{collabauth.WithLogger(logger)}
	authorizer := &o2.LoopbackAuthorizer{
		Addr:   fmt.Sprintf("127.0.0.1:%d", cfg.OAuth2.LoopbackPort),
		Logger: logger,
	}
	providers := []*o2.Provider{
		o2.NewGoogle(cfg.OAuth2.Google.ClientID, cfg.OAuth2.Google.ClientSecret, cfg.OAuth2.Google.CallbackURL),
		o2.NewMicrosoft(cfg.OAuth2.Microsoft.ClientID, cfg.OAuth2.Microsoft.ClientSecret, cfg.OAuth2.Microsoft.CallbackURL),
		o2.NewGithub(cfg.OAuth2.GitHub.ClientID, cfg.OAuth2.GitHub.ClientSecret, cfg.OAuth2.GitHub.CallbackURL),
		o2.NewORCID(cfg.OAuth2.ORCID.ClientID, cfg.OAuth2.ORCID.ClientSecret, cfg.OAuth2.ORCID.CallbackURL),
	}
	for _, p := range providers {
		flow := o2.NewExchange(p, authorizer,
			o2.WithTokenStore(credentials),
			o2.WithExchangeLogger(logger))
		opts = append(opts, collabauth.WithOAuth2Flow(p.ID, flow))
	}

	svc := collabauth.NewService(registry, dir, credentials, opts...)
	a := &app{
		cfg:         cfg,
		svc:         svc,
		session:     collabauth.NewSessionContext(svc),
		registry:    registry,
		credentials: credentials,
		directory:   dir,
	}
	a.session.Resolve(ctx)

	switch command {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "oauth":
		return a.oauth(ctx, args)
	case "whoami":
		return a.whoami()
	case "logout":
		return a.logout(ctx)
	case "users":
		return a.users(ctx)
	case "search":
		return a.search(ctx, args)
	case "stats":
		return a.stats(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func prompt(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *app) register(ctx context.Context) error {
	user := &collabauth.UserRecord{}
	fields := []struct {
		label string
		dst   *string
	}{
		{"Email", &user.Email},
		{"First name", &user.PersonalInfo.FirstName},
		{"Last name", &user.PersonalInfo.LastName},
		{"University", &user.AcademicInfo.University},
		{"Department", &user.AcademicInfo.Department},
	}
	for _, f := range fields {
		value, err := prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = value
	}
	password, err := promptPassword("Password")
	if err != nil {
		return err
	}
	user.Password = password

	stored, err := a.svc.Register(ctx, user)
	if err != nil {
		var verr *collabauth.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				fmt.Fprintln(os.Stderr, " -", v)
			}
		}
		return err
	}
	fmt.Printf("registered %s (%s)\n", stored.FullName(), stored.ID)
	if collabauth.IsAcademicEmail(stored.Email) {
		fmt.Println("academic email recognized:", collabauth.UniversityFromEmail(stored.Email))
	}
	return nil
}

func (a *app) login(ctx context.Context) error {
	email, err := prompt("Email")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password")
	if err != nil {
		return err
	}

	user, err := a.svc.AuthenticateWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	a.session.Login(user)
	fmt.Printf("signed in as %s <%s>\n", user.FullName(), user.Email)
	return nil
}

func (a *app) oauth(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: collabctl oauth <google|microsoft|github|orcid>")
	}
	providerID := strings.ToLower(args[0])

	user, known, err := a.svc.AuthenticateWithOAuth2(ctx, providerID)
	if err != nil {
		return err
	}
	if !known {
		fmt.Printf("%s is not registered yet; run `collabctl register` to complete sign-up\n", user.Email)
		return nil
	}
	a.session.Login(user)
	fmt.Printf("signed in as %s <%s> via %s\n", user.FullName(), user.Email, providerID)
	return nil
}

func (a *app) whoami() error {
	s := a.session.Current()
	if !s.IsAuthenticated || s.CurrentUser == nil {
		fmt.Println("not signed in")
		return nil
	}
	u := s.CurrentUser
	fmt.Printf("%s <%s>\n", u.FullName(), u.Email)
	if u.AcademicInfo.University != "" {
		fmt.Printf("  %s, %s\n", u.AcademicInfo.University, u.AcademicInfo.Department)
	}
	if u.Metadata.LastActive != "" {
		fmt.Println("  last active:", u.Metadata.LastActive)
	}
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func (a *app) users(ctx context.Context) error {
	users, err := a.registry.All(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("no locally registered accounts")
		return nil
	}
	for _, u := range users {
		fmt.Printf("%s  %s <%s>  %s\n", u.ID, u.FullName(), u.Email, u.AcademicInfo.University)
	}
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	q := directory.Query{Text: strings.Join(args, " ")}
	users, err := a.directory.Search(ctx, q)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, u := range users {
		verified := " "
		if u.AccountSettings.IsVerified {
			verified = "*"
		}
		fmt.Printf("%s %s <%s>  %s / %s\n", verified, u.FullName(), u.Email,
			u.AcademicInfo.University, u.AcademicInfo.Department)
	}
	return nil
}

func (a *app) stats(ctx context.Context) error {
	st, err := a.directory.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("users: %d (verified: %d)\n", st.TotalUsers, st.Verified)
	for _, uni := range st.TopUniversities(5) {
		fmt.Printf("  %-30s %d\n", uni, st.Universities[uni])
	}
	return nil
}
