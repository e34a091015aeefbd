package main

import (
	"flag"
	"io"
	"os"
	"strings"

	"tilescope/internal/cli"
	"tilescope/internal/gui"
	"tilescope/pkg/api"
)

func main() {
	// A bare PDF path opens the viewer.
	if len(os.Args) == 2 && strings.HasSuffix(strings.ToLower(os.Args[1]), ".pdf") {
		os.Args = []string{os.Args[0], "gui", "-pdf", os.Args[1]}
	}
	os.Exit(cli.Main("tilescope", os.Args[1:], os.Stdout, os.Stderr, cli.Command{
		Name:    "gui",
		Summary: "Open the desktop viewer",
		Run:     cmdGUI,
	}))
}

func cmdGUI(args []string, _, stderr io.Writer) error {
	fs := flag.NewFlagSet("gui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		pdf     = fs.String("pdf", "", "PDF file to open")
		pages   = fs.String("pages", "", "synthetic page list")
		workers = fs.Int("workers", 2, "background fetch workers")
		paged   = fs.Bool("paged", false, "draw whole-page snapshots instead of tiles")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pdf == "" && fs.NArg() > 0 {
		*pdf = fs.Arg(0)
	}

	opts := []api.Option{
		api.WithScreen(1920, 1200),
		api.WithWorkers(*workers),
	}
	if *paged {
		opts = append(opts, api.WithLayoutMode(api.LayoutPaged))
	}
	app := gui.NewApp(opts...)

	switch {
	case *pdf != "":
		app.RunWithFile(*pdf)
	case *pages != "":
		list, err := api.ParsePages(*pages)
		if err != nil {
			return err
		}
		app.RunWithSource(api.OpenProof(list), "pages "+*pages)
	default:
		app.Run()
	}
	return nil
}
