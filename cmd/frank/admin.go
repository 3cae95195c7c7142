package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/frankbot/frank/internal/auth"
	"github.com/frankbot/frank/internal/db"
	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/frankbot/frank/migrations"
)

func runAdmin(args []string) int {
	if len(args) == 0 {
		printAdminUsage()
		return 2
	}

	switch args[0] {
	case "hash-password":
		return runHashPassword(args[1:], os.Stdout)
	case "parse-when":
		return runParseWhen(args[1:], os.Stdout)
	case "migrate":
		return runMigrate(args[1:])
	case "errors":
		return runListErrors(args[1:], os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown admin command: %s\n", args[0])
		printAdminUsage()
		return 2
	}
}

func printAdminUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  frank admin hash-password [--password <pw>]")
	fmt.Fprintln(os.Stderr, "  frank admin parse-when [--tz <zone>] \"<When line>\"")
	fmt.Fprintln(os.Stderr, "  frank admin migrate [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "  frank admin errors [--limit 20] [--db-dsn <dsn>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Notes:")
	fmt.Fprintln(os.Stderr, "  - If --password is omitted, a random password is generated and printed.")
	fmt.Fprintln(os.Stderr, "  - --db-dsn defaults to FR_DB_DSN, --tz to FR_DEFAULT_TZ or UTC.")
}

func runHashPassword(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var password string
	fs.StringVar(&password, "password", "", "Intake password (if empty, generates one)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	generated := false
	if password == "" {
		pw, err := generatePassword(24)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate password: %v\n", err)
			return 1
		}
		password = pw
		generated = true
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		fmt.Fprintln(os.Stderr, "Password must be at least 12 characters")
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		return 1
	}

	if generated {
		fmt.Fprintf(out, "password: %s\n", password)
	}
	fmt.Fprintf(out, "FR_INTAKE_PASSWORD_HASH=%s\n", hash)
	return 0
}

func runParseWhen(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("parse-when", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var tz string
	fs.StringVar(&tz, "tz", "", "Zone for recurring lines without an offset (defaults to FR_DEFAULT_TZ or UTC)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "a When line is required")
		return 2
	}

	if tz == "" {
		tz = strings.TrimSpace(os.Getenv("FR_DEFAULT_TZ"))
	}
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unknown time zone %q\n", tz)
		return 2
	}

	line := strings.Join(fs.Args(), " ")
	if err := describeWhen(out, meeting.NewParser(loc), line); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", meeting.KindName(err), err)
		return 1
	}
	return 0
}

// describeWhen parses a line, with or without its "When: " label, and
// prints the result.
func describeWhen(out io.Writer, parser *meeting.Parser, line string) error {
	if !strings.HasPrefix(strings.ToLower(line), "when: ") {
		line = "When: " + line
	}
	mt, err := parser.ParseBody(line)
	if err != nil {
		return err
	}

	rule, err := meeting.RRule(mt.Recurrence, mt.Start)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "start:      %s\n", mt.Start.Format(time.RFC3339))
	fmt.Fprintf(out, "end:        %s\n", mt.End().Format(time.RFC3339))
	fmt.Fprintf(out, "duration:   %s\n", mt.Duration)
	fmt.Fprintf(out, "recurrence: %s\n", mt.Recurrence.Kind())
	if param := mt.Recurrence.Param(); param != "" {
		fmt.Fprintf(out, "param:      %s\n", param)
	}
	if rule != "" {
		fmt.Fprintf(out, "rrule:      %s\n", rule)
	}
	return nil
}

func runMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var dbDSN string
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to FR_DB_DSN)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	dbDSN, ok := resolveDSN(dbDSN)
	if !ok {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, dbDSN, db.WithMaxConns(1), db.WithApplicationName("frank-admin"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer db.Close(pool)

	applied, err := db.ApplyMigrations(ctx, pool, migrations.FS)
	for _, name := range applied {
		fmt.Fprintf(os.Stdout, "applied %s\n", name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		return 1
	}

	if len(applied) == 0 {
		fmt.Fprintln(os.Stdout, "Schema is up to date.")
	}
	return 0
}

func runListErrors(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("errors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var dbDSN string
	var limit int
	var withStack bool
	fs.StringVar(&dbDSN, "db-dsn", "", "Postgres DSN (defaults to FR_DB_DSN)")
	fs.IntVar(&limit, "limit", 20, "Number of reports to show")
	fs.BoolVar(&withStack, "stack", false, "Print stack traces")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	dbDSN, ok := resolveDSN(dbDSN)
	if !ok {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dbDSN, db.WithMaxConns(1), db.WithApplicationName("frank-admin"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer db.Close(pool)

	reports, err := errorlog.NewReader(pool).ListRecent(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list error reports: %v\n", err)
		return 1
	}

	for _, rep := range reports {
		fmt.Fprintf(out, "#%d %s %s: %s\n", rep.ID, rep.CreatedAt.Format(time.RFC3339), rep.Route, rep.Message)
		if cause, ok := rep.Meta["error"]; ok {
			fmt.Fprintf(out, "    %v\n", cause)
		}
		if withStack {
			fmt.Fprintln(out, rep.Stack)
		}
	}
	return 0
}

func resolveDSN(dbDSN string) (string, bool) {
	if dbDSN == "" {
		dbDSN = strings.TrimSpace(os.Getenv("FR_DB_DSN"))
	}
	if dbDSN == "" {
		fmt.Fprintln(os.Stderr, "--db-dsn is required (or set FR_DB_DSN)")
		return "", false
	}
	return dbDSN, true
}

func generatePassword(bytesLen int) (string, error) {
	if bytesLen < 12 {
		bytesLen = 12
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	// URL-safe, printable, without padding.
	return base64.RawURLEncoding.EncodeToString(b), nil
}
