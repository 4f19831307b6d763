// Package cli is the visitor-side terminal front end: it walks a
// questionnaire and drives the locked-content gate of a case study.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Inspirimental/addonware-web-sub000/internal/client"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/unlockcache"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

var ErrUsage = errors.New("usage")

const usage = `usage:
  gatedctl [-server URL] [-lang en|de] [-store PATH] survey <slug>
  gatedctl ... unlock request -name NAME -email EMAIL [-org ORG] <resourceId>
  gatedctl ... unlock verify <resourceId> <token>
  gatedctl ... unlock status <resourceId>
  gatedctl ... unlock forget <resourceId>
`

// API is the part of client.Client the commands use.
type API interface {
	Questionnaire(ctx context.Context, slug string) (*models.Questionnaire, error)
	SubmitResponse(ctx context.Context, req models.SubmissionRequest) error
	CaseStudy(ctx context.Context, id string) (*client.CaseStudy, error)
	RequestUnlock(ctx context.Context, req client.UnlockRequest) error
	Verify(ctx context.Context, token, resourceID string) (*client.Verification, error)
	Reveal(ctx context.Context, token, resourceID string) (*client.Verification, error)
}

// App holds the I/O and collaborators of one CLI invocation.
type App struct {
	API    API
	Cache  *unlockcache.Cache
	In     *bufio.Reader
	Out    io.Writer
	Locale string
}

func NewApp(api API, cache *unlockcache.Cache, in io.Reader, out io.Writer, locale string) *App {
	return &App{API: api, Cache: cache, In: bufio.NewReader(in), Out: out, Locale: locale}
}

func (a *App) t(key string) string { return utils.T(a.Locale, key) }

func (a *App) printf(format string, args ...any) { fmt.Fprintf(a.Out, format, args...) }

// Run dispatches args (without global flags) to a command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("%s", usage)
		return ErrUsage
	}
	switch args[0] {
	case "survey":
		if len(args) != 2 {
			a.printf("%s", usage)
			return ErrUsage
		}
		return a.Survey(ctx, args[1])
	case "unlock":
		return a.unlock(ctx, args[1:])
	case "help", "-h", "--help":
		a.printf("%s", usage)
		return nil
	}
	a.printf("%s", usage)
	return ErrUsage
}

func (a *App) unlock(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printf("%s", usage)
		return ErrUsage
	}
	switch args[0] {
	case "request":
		fs := flag.NewFlagSet("unlock request", flag.ContinueOnError)
		fs.SetOutput(a.Out)
		name := fs.String("name", "", "your name")
		email := fs.String("email", "", "where to send the unlock link")
		org := fs.String("org", "", "organization (optional)")
		if err := fs.Parse(args[1:]); err != nil {
			return ErrUsage
		}
		if fs.NArg() != 1 {
			a.printf("%s", usage)
			return ErrUsage
		}
		return a.RequestUnlock(ctx, fs.Arg(0), *name, *email, *org)
	case "verify":
		if len(args) != 3 {
			a.printf("%s", usage)
			return ErrUsage
		}
		return a.VerifyUnlock(ctx, args[1], args[2])
	case "status":
		if len(args) != 2 {
			a.printf("%s", usage)
			return ErrUsage
		}
		return a.Status(ctx, args[1])
	case "forget":
		if len(args) != 2 {
			a.printf("%s", usage)
			return ErrUsage
		}
		return a.Cache.Forget(args[1])
	}
	a.printf("%s", usage)
	return ErrUsage
}

func (a *App) readLine(prompt string) (string, error) {
	a.printf("%s", prompt)
	line, err := a.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
