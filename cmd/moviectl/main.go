package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"moviefinder/internal/app"
	"moviefinder/internal/client"
	"moviefinder/internal/domain"
)

const usage = `usage: moviectl <command> [flags] [args]

commands:
  search [-page N] <title>          search the catalog
  show [-title T] <imdbID>          show one movie from the results of a title search
  fav add [-title T -year Y -id N] <imdbID>
  fav remove <imdbID>
  fav toggle [-title T -year Y -id N] <imdbID>
  fav list [-recent]
  fav clear
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel)
	a := client.New(ctx, cfg, client.WithLogger(logger))
	defer a.Close()

	switch args[0] {
	case "search":
		return runSearch(ctx, a, args[1:], out)
	case "show":
		return runShow(ctx, a, args[1:], out)
	case "fav":
		return runFavorites(ctx, a, args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func runSearch(ctx context.Context, a *client.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	title := strings.Join(fs.Args(), " ")

	result, err := a.Search.SearchTitle(ctx, title, *page)
	if err != nil {
		return err
	}
	printMovies(out, result.Items, a)
	fmt.Fprintf(out, "\npage %d of %d (%d movies)\n", result.Page, result.TotalPages, result.Total)
	return nil
}

func runShow(ctx context.Context, a *client.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	title := fs.String("title", "", "title to search for the movie")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: show needs one imdbID", errUsage)
	}
	externalID := fs.Arg(0)

	movie, ok := a.Search.ViewMovie(externalID)
	if !ok {
		if _, err := a.Search.SearchTitle(ctx, *title, 1); err != nil {
			return err
		}
		movie, ok = a.Search.ViewMovie(externalID)
	}
	if !ok {
		return fmt.Errorf("movie %s not found in search results", externalID)
	}

	fmt.Fprintf(out, "Title:     %s\n", movie.Title)
	fmt.Fprintf(out, "Year:      %d\n", movie.Year)
	fmt.Fprintf(out, "IMDb ID:   %s\n", movie.ExternalID)
	fmt.Fprintf(out, "Favorite:  %t\n", a.Favorites.IsFavorited(movie))
	return nil
}

func runFavorites(ctx context.Context, a *client.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: fav needs a subcommand", errUsage)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "list":
		fs := flag.NewFlagSet("fav list", flag.ContinueOnError)
		recent := fs.Bool("recent", false, "order by most recently favorited")
		if err := fs.Parse(rest); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		items := a.Favorites.Favorites()
		if *recent {
			items = a.Favorites.SortedByMostRecent()
		}
		printFavorites(out, items)
		return nil
	case "clear":
		a.Favorites.Clear(ctx)
		fmt.Fprintln(out, "favorites cleared")
		return a.Favorites.StorageErr()
	case "add", "remove", "toggle":
		movie, err := parseMovieArgs(sub, rest)
		if err != nil {
			return err
		}
		switch sub {
		case "add":
			a.Favorites.Add(ctx, movie)
			fmt.Fprintf(out, "%s added (%d favorites)\n", movie.ExternalID, a.Favorites.Count())
		case "remove":
			a.Favorites.Remove(ctx, movie)
			fmt.Fprintf(out, "%s removed (%d favorites)\n", movie.ExternalID, a.Favorites.Count())
		case "toggle":
			if a.Favorites.Toggle(ctx, movie) {
				fmt.Fprintf(out, "%s added\n", movie.ExternalID)
			} else {
				fmt.Fprintf(out, "%s removed\n", movie.ExternalID)
			}
		}
		return a.Favorites.StorageErr()
	default:
		return fmt.Errorf("%w: unknown fav subcommand %q", errUsage, sub)
	}
}

func parseMovieArgs(name string, args []string) (domain.Movie, error) {
	fs := flag.NewFlagSet("fav "+name, flag.ContinueOnError)
	title := fs.String("title", "", "movie title")
	year := fs.Int("year", 0, "release year")
	id := fs.Int("id", 0, "catalog id")
	if err := fs.Parse(args); err != nil {
		return domain.Movie{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return domain.Movie{}, fmt.Errorf("%w: fav %s needs one imdbID", errUsage, name)
	}
	return domain.Movie{ID: *id, Title: *title, Year: *year, ExternalID: strings.TrimSpace(fs.Arg(0))}, nil
}

func printMovies(out io.Writer, movies []domain.Movie, a *client.App) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIMDB\tYEAR\tTITLE\tFAV")
	for _, movie := range movies {
		fav := ""
		if a.Favorites.IsFavorited(movie) {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", movie.ID, movie.ExternalID, movie.Year, movie.Title, fav)
	}
	_ = tw.Flush()
}

func printFavorites(out io.Writer, items []domain.FavoriteMovie) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no favorites")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMDB\tYEAR\tTITLE\tFAVORITED")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", item.ExternalID, item.Year, item.Title, item.FavoritedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

// newLogger logs to stderr at warn unless LOG_LEVEL asks for debug or error.
func newLogger(levelRaw string) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(strings.TrimSpace(levelRaw)) {
	case "debug":
		level = slog.LevelDebug
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
