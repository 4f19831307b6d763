// Command gatedctl takes a questionnaire and unlocks case studies from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/Inspirimental/addonware-web-sub000/internal/cli"
	"github.com/Inspirimental/addonware-web-sub000/internal/client"
	"github.com/Inspirimental/addonware-web-sub000/internal/unlockcache"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gatedctl", flag.ContinueOnError)
	server := fs.String("server", envOr("ADDONWARE_SERVER", "http://localhost:8080"), "API base URL")
	lang := fs.String("lang", systemLang(), "output language (en or de)")
	store := fs.String("store", "", "file remembering unlocked case studies")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	*lang = utils.DetermineLocale(*lang, "", locales, "en")

	path := *store
	if path == "" {
		p, err := unlockcache.DefaultPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "gatedctl: no config dir, pass -store:", err)
			return 1
		}
		path = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.New(*server, client.WithLocale(*lang))
	cache := unlockcache.New(unlockcache.NewFileStorage(path), "")
	app := cli.NewApp(api, cache, os.Stdin, os.Stdout, *lang)
	if err := app.Run(ctx, fs.Args()); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "gatedctl:", err)
		return 1
	}
	return 0
}

var locales = []string{"en", "de"}

// systemLang turns a POSIX LANG such as de_DE.UTF-8 into a language tag.
func systemLang() string {
	v := os.Getenv("LANG")
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	return strings.ReplaceAll(v, "_", "-")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
