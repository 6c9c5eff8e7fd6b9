// Command haryana is a terminal client for the Smart Haryana civic-issues backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-haryana-gateway/internal/civic"
	"github.com/noah-isme/smart-haryana-gateway/internal/issueview"
	"github.com/noah-isme/smart-haryana-gateway/internal/models"
	"github.com/noah-isme/smart-haryana-gateway/internal/store"
	"github.com/noah-isme/smart-haryana-gateway/pkg/config"
	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
	"github.com/noah-isme/smart-haryana-gateway/pkg/logger"
)

type app struct {
	client   *civic.Client
	store    *store.Store
	persist  *store.Persistence
	validate *validator.Validate
	logger   *zap.Logger
	out      io.Writer
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		return 1
	}

	root := flag.NewFlagSet("haryana", flag.ContinueOnError)
	root.SetOutput(os.Stderr)
	statePath := root.String("state", cfg.CLI.StatePath, "local state file")
	baseURL := root.String("base", cfg.Civic.BaseURL, "civic backend base URL")
	verbose := root.Bool("v", false, "verbose logging")
	if err := root.Parse(args); err != nil {
		return 1
	}
	rest := root.Args()
	if len(rest) == 0 {
		printUsage()
		return 1
	}

	logr, err := logger.NewCLI(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: init logger: %v\n", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	persist, err := store.Open(ctx, *statePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open state: %v\n", err)
		return 1
	}
	defer persist.Close()

	initial, err := persist.Load(ctx)
	if err != nil {
		logr.Warn("stored state unreadable; starting fresh", zap.Error(err))
		initial = store.Initial()
	}
	if initial.Language == store.DefaultLanguage && store.SupportedLanguage(cfg.CLI.Language) {
		initial.Language = cfg.CLI.Language
	}

	validate := validator.New()
	a := &app{
		client: civic.NewClient(civic.Config{
			BaseURL:   strings.TrimRight(*baseURL, "/"),
			Timeout:   cfg.Civic.Timeout,
			Retries:   1,
			Logger:    logr.Named("civic"),
			Validator: validate,
		}),
		store:    store.New(initial, logr.Named("store")),
		persist:  persist,
		validate: validate,
		logger:   logr,
		out:      os.Stdout,
	}
	defer a.store.Close()

	var cmdErr error
	switch rest[0] {
	case "login":
		cmdErr = a.login(ctx, rest[1:])
	case "issues":
		cmdErr = a.issues(ctx, rest[1:])
	case "show":
		cmdErr = a.show(ctx, rest[1:])
	case "verify":
		cmdErr = a.verify(ctx, rest[1:])
	case "feedback":
		cmdErr = a.feedback(ctx, rest[1:])
	case "logout":
		cmdErr = a.logout(ctx)
	case "lang":
		cmdErr = a.lang(ctx, rest[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", rest[0])
		printUsage()
		return 1
	}

	if cmdErr != nil {
		if errors.Is(cmdErr, appErrors.ErrUnauthorized) {
			_ = a.store.Dispatch(ctx, store.SessionEnded{})
			_ = a.save(ctx)
			fmt.Fprintln(os.Stderr, "error: not signed in or session expired; run `haryana login`")
			return 1
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", cmdErr)
		if errors.Is(cmdErr, appErrors.ErrValidation) {
			return 2
		}
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: haryana [-state path] [-base url] [-v] <command> [flags]

commands:
  login     -email <email> [-password <password>]   (password falls back to HARYANA_PASSWORD)
  issues    [-status all|pending|assigned|completed|verified|rejected] [-sort newest|oldest|priority|status] [-json]
  show      <id> [-json]
  verify    <id>
  feedback  <id> -rating 1-5 -comment <text>
  logout
  lang      [en|hi]
`)
}

func (a *app) save(ctx context.Context) error {
	if err := a.persist.Save(ctx, a.store.State()); err != nil {
		a.logger.Warn("failed to persist state", zap.Error(err))
		return err
	}
	return nil
}

func (a *app) session() (models.Session, error) {
	state := a.store.State()
	if !state.SignedIn() {
		return models.Session{}, appErrors.Clone(appErrors.ErrUnauthorized, "not signed in")
	}
	return *state.Session, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("HARYANA_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	trimmed := strings.TrimSpace(*email)
	if err := a.validate.Var(trimmed, "required,email"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "a valid -email is required")
	}
	if *password == "" {
		return appErrors.Clone(appErrors.ErrValidation, "-password or HARYANA_PASSWORD is required")
	}

	token, err := a.client.Login(ctx, trimmed, *password)
	if err != nil {
		return civic.ToAppError(err)
	}
	profile, err := a.client.Me(ctx, token.AccessToken)
	if err != nil {
		return civic.ToAppError(err)
	}
	if !profile.IsActive {
		return appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
	}

	session := models.Session{AccessToken: token.AccessToken, TokenType: token.TokenType, Profile: profile}
	if err := a.store.Dispatch(ctx, store.SessionStarted{Session: session}); err != nil {
		return err
	}
	if err := a.save(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", profile.FullName, profile.Role)
	return nil
}

func (a *app) loader(session models.Session) func(context.Context) ([]models.Issue, error) {
	return func(ctx context.Context) ([]models.Issue, error) {
		switch {
		case session.Profile.Role.IsStaff():
			return a.client.AllIssues(ctx, session.AccessToken)
		case session.Profile.Role == models.RoleWorker:
			return a.client.WorkerTasks(ctx, session.AccessToken)
		default:
			return a.client.MyIssues(ctx, session.AccessToken)
		}
	}
}

func (a *app) issues(ctx context.Context, args []string) error {
	current := a.store.State().Query
	fs := flag.NewFlagSet("issues", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	status := fs.String("status", current.Status, "status selector")
	sortKey := fs.String("sort", string(current.Sort), "sort key: "+sortKeyUsage())
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	selector, err := issueview.ParseSelector(*status)
	if err != nil {
		return err
	}
	key, err := issueview.ParseSortKey(*sortKey)
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}

	if err := a.store.Dispatch(ctx, store.QueryChanged{Query: issueview.Query{Status: selector, Sort: key}}); err != nil {
		return err
	}
	if err := a.store.Fetch(ctx, a.loader(session)); err != nil {
		return civic.ToAppError(err)
	}
	_ = a.save(ctx)

	views := a.store.State().Visible()
	if *asJSON {
		return writeJSON(a.out, views)
	}
	printIssues(a.out, views)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "print JSON")
	id, err := parseIDArgs(fs, args)
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}

	issue, err := a.client.Issue(ctx, session.AccessToken, id)
	if err != nil {
		return civic.ToAppError(err)
	}
	_ = a.store.Dispatch(ctx, store.IssueUpdated{Issue: issue})

	view := issueview.Decorate(issue)
	if *asJSON {
		return writeJSON(a.out, view)
	}
	printIssue(a.out, view)
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id, err := parseIDArgs(fs, args)
	if err != nil {
		return err
	}
	session, err := a.session()
	if err != nil {
		return err
	}

	issue, err := a.client.VerifyCompletion(ctx, session.AccessToken, id)
	if err != nil {
		return civic.ToAppError(err)
	}
	_ = a.store.Dispatch(ctx, store.IssueUpdated{Issue: issue})
	fmt.Fprintf(a.out, "issue #%d is now %s\n", issue.ID, issue.Status)
	return nil
}

func (a *app) feedback(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	rating := fs.Int("rating", 0, "rating from 1 to 5")
	comment := fs.String("comment", "", "comment, 5 to 1000 characters")
	id, err := parseIDArgs(fs, args)
	if err != nil {
		return err
	}
	if err := a.validate.Var(*rating, "min=1,max=5"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "-rating must be between 1 and 5")
	}
	text := strings.TrimSpace(*comment)
	if err := a.validate.Var(text, "min=5,max=1000"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "-comment must be 5 to 1000 characters")
	}
	session, err := a.session()
	if err != nil {
		return err
	}

	fb, err := a.client.SubmitFeedback(ctx, session.AccessToken, id, models.FeedbackInput{Rating: *rating, Comment: text})
	if err != nil {
		return civic.ToAppError(err)
	}
	fmt.Fprintf(a.out, "feedback #%d recorded for issue #%d\n", fb.ID, id)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.store.Dispatch(ctx, store.SessionEnded{}); err != nil {
		return err
	}
	if err := a.save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) lang(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, a.store.State().Language)
		return nil
	}
	code := strings.ToLower(strings.TrimSpace(args[0]))
	if !store.SupportedLanguage(code) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported language %q (want one of %s)", code, strings.Join(store.Languages, ", ")))
	}
	if err := a.store.Dispatch(ctx, store.LanguageChanged{Language: code}); err != nil {
		return err
	}
	if err := a.save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, code)
	return nil
}

// parseIDArgs accepts the issue id before or after the command's flags.
func parseIDArgs(fs *flag.FlagSet, args []string) (int64, error) {
	var raw string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		raw, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if raw == "" && fs.NArg() > 0 {
		raw = fs.Arg(0)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "an issue id is required")
	}
	return id, nil
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printIssues(w io.Writer, views []issueview.View) {
	if len(views) == 0 {
		fmt.Fprintln(w, "no issues")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTYPE\tDISTRICT\tREPORTED\tTITLE")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t[%s] %s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Display.Icon, v.Status, v.PriorityTier, v.ProblemType, v.District,
			v.CreatedAt.Local().Format("2006-01-02"), v.Title)
	}
	tw.Flush()
}

func printIssue(w io.Writer, v issueview.View) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "Issue\t#%d %s\n", v.ID, v.Title)
	fmt.Fprintf(tw, "Status\t[%s] %s (%s)\n", v.Display.Icon, v.Status, v.Display.ColorTier)
	fmt.Fprintf(tw, "Priority\t%s (%.2f)\n", v.PriorityTier, v.Priority)
	fmt.Fprintf(tw, "Type\t%s\n", v.ProblemType)
	fmt.Fprintf(tw, "District\t%s\n", v.District)
	fmt.Fprintf(tw, "Reported\t%s by %s\n", v.CreatedAt.Local().Format(time.RFC1123), v.SubmittedBy.FullName)
	if v.AssignedTo != nil {
		dept := ""
		if v.AssignedTo.Department != nil {
			dept = " / " + v.AssignedTo.Department.Name
		}
		fmt.Fprintf(tw, "Assigned\t%s%s\n", v.AssignedTo.User.FullName, dept)
	}
	if v.Description != "" {
		fmt.Fprintf(tw, "Details\t%s\n", v.Description)
	}
	for _, m := range v.MediaFiles {
		fmt.Fprintf(tw, "Media\t%s %s\n", m.MediaType, m.FileURL)
	}
	for _, fb := range v.Feedback {
		fmt.Fprintf(tw, "Feedback\t%d/5 %s\n", fb.Rating, fb.Comment)
	}
	tw.Flush()
}

func sortKeyUsage() string {
	keys := issueview.SortKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = string(key)
	}
	return strings.Join(names, "|")
}
