package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ClassBoard/internal/config"
	"ClassBoard/internal/export"
	"ClassBoard/internal/logger"
	boardnet "ClassBoard/internal/net"
	"ClassBoard/internal/persist"
	"ClassBoard/internal/raster"
	"ClassBoard/internal/server"
	"ClassBoard/internal/ui"
	"ClassBoard/internal/whiteboard"

	"github.com/rs/zerolog"
)

const (
	defaultConfig   = "classboard.toml"
	discoverTimeout = 3 * time.Second
)

const usage = `usage: ClassBoard [command] [flags]

commands:
  run       open the whiteboard window (default)
  serve     run the development snapshot server
  status    print snapshot server activity for a session
  download  write the newest snapshot of a session as PNG or PDF
`

// common holds flags every command accepts. Non-empty values override the
// config file.
type common struct {
	config   string
	session  string
	server   string
	level    string
	discover bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", defaultConfig, "TOML config file")
	fs.StringVar(&c.session, "session", "", "session id")
	fs.StringVar(&c.server, "server", "", "snapshot server base URL")
	fs.StringVar(&c.level, "log-level", "", "log level")
	fs.BoolVar(&c.discover, "discover", false, "find the snapshot server over mDNS")
}

func (c *common) load() (config.Config, error) {
	cfg, err := config.Load(c.config, c.config == defaultConfig)
	if err != nil {
		return cfg, err
	}
	if c.session != "" {
		cfg.Session.ID = c.session
	}
	if c.server != "" {
		cfg.Server.BaseURL = c.server
	}
	if c.level != "" {
		cfg.Log.Level = c.level
	}
	if c.discover {
		cfg.Server.BaseURL = ""
		cfg.Server.Discover = true
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*logger.Log, error) {
	return logger.New().
		FromPath(cfg.Log.Path).
		Level(cfg.Log.Level).
		Console(cfg.Log.Path == "").
		Make()
}

// baseURL resolves the snapshot server, browsing mDNS when none is set.
func baseURL(ctx context.Context, cfg config.Config, log zerolog.Logger) (string, error) {
	if cfg.Server.BaseURL != "" || !cfg.Server.Discover {
		return cfg.Server.BaseURL, nil
	}
	url, err := boardnet.Discover(ctx, discoverTimeout)
	if err != nil {
		return "", fmt.Errorf("discover snapshot server: %w", err)
	}
	log.Info().Str("url", url).Msg("snapshot server discovered")
	return url, nil
}

func main() {
	cmd := "run"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runBoard(args)
	case "serve":
		err = runServer(args)
	case "status":
		err = runStatus(args)
	case "download":
		err = runDownload(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "ClassBoard:", err)
		os.Exit(1)
	}
}

func runBoard(args []string) error {
	var c common
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	c.register(fs)
	name := fs.String("name", "", "actor name recorded with saves")
	role := fs.String("role", "", "actor role recorded with saves")
	readOnly := fs.Bool("read-only", false, "view without editing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *name != "" {
		cfg.Actor.Name = *name
	}
	if *role != "" {
		cfg.Actor.Role = *role
	}
	cfg.Session.ReadOnly = cfg.Session.ReadOnly || *readOnly

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	log := l.Component("ui")

	url, err := baseURL(context.Background(), cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("running without persistence")
	}

	app := ui.NewApp(log)
	opts := whiteboard.Options{
		SessionID:      cfg.Session.ID,
		Actor:          persist.Actor{Role: cfg.Actor.Role, Name: cfg.Actor.Name},
		Background:     raster.MustColor(cfg.Board.Background, raster.White),
		AutosaveDelay:  cfg.Board.AutosaveDelay,
		RequestTimeout: cfg.Server.Timeout,
		Notify:         app.Notify,
		Tools: whiteboard.ToolState{
			Tool:      raster.ToolPen,
			Color:     cfg.Board.Color,
			BrushSize: cfg.Board.BrushSize,
			FontSize:  cfg.Board.FontSize,
			Alignment: whiteboard.DefaultToolState().Alignment,
		},
		ReadOnly: cfg.Session.ReadOnly,
		Log:      l.Logger,
	}

	var drain func(time.Duration) bool
	if url != "" && cfg.Session.ID != "" {
		client := persist.NewClient(url, cfg.Server.Timeout, l.Component("persist"))
		opts.Persister = client
		drain = client.Drain
	} else {
		log.Warn().Msg("no session or server configured, board will not be saved")
	}

	engine := whiteboard.New(opts)
	app.Run(engine, float32(cfg.Board.Width), float32(cfg.Board.Height), drain)
	engine.Wait()
	return nil
}

func runServer(args []string) error {
	var c common
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	c.register(fs)
	port := fs.Int("port", 0, "listen port")
	history := fs.Int("history", server.DefaultHistory, "snapshots kept per session")
	noMDNS := fs.Bool("no-mdns", false, "do not advertise over mDNS")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Listen.Port = *port
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s := server.New(server.Options{History: *history, Log: l.Logger})
	return s.Run(ctx, cfg.Listen.Port, !*noMDNS)
}

func runStatus(args []string) error {
	var c common
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	log := l.Component("net")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	url, err := baseURL(ctx, cfg, log)
	if err != nil {
		return err
	}

	log.Info().Str("url", url).Str("session", cfg.Session.ID).Msg("watching snapshot server")
	return boardnet.Watch(ctx, url, cfg.Session.ID, func(ev boardnet.Event) {
		line := fmt.Sprintf("%s %-11s session=%s", ev.At.Local().Format(time.TimeOnly), ev.Type, ev.SessionID)
		switch ev.Type {
		case boardnet.EventSaved:
			line += fmt.Sprintf(" actor=%q annotations=%d bytes=%d", ev.Actor, ev.Annotations, ev.Bytes)
		case boardnet.EventLoaded:
			line += fmt.Sprintf(" bytes=%d cached=%t", ev.Bytes, ev.Cached)
		case boardnet.EventInvalidated:
			line += fmt.Sprintf(" cached=%t", ev.Cached)
		}
		fmt.Println(line)
	})
}

func runDownload(args []string) error {
	var c common
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	c.register(fs)
	out := fs.String("o", "", "output file, format taken from its extension")
	format := fs.String("format", "", "png or pdf")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.load()
	if err != nil {
		return err
	}
	if cfg.Session.ID == "" {
		return persist.ErrNoSession
	}

	f := export.FormatPNG
	switch {
	case *format != "":
		f, err = export.ParseFormat(*format)
	case *out != "":
		f, err = export.ParseFormat(filepath.Ext(*out))
	}
	if err != nil {
		return err
	}
	if *out == "" {
		*out = "board-" + cfg.Session.ID + f.Ext()
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	log := l.Component("persist")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout+discoverTimeout)
	defer cancel()
	url, err := baseURL(ctx, cfg, log)
	if err != nil {
		return err
	}
	snap, err := persist.NewClient(url, cfg.Server.Timeout, log).Load(ctx, cfg.Session.ID)
	if err != nil {
		return err
	}

	width, height := cfg.Board.Width, cfg.Board.Height
	if snap.Image != nil {
		width, height = snap.Image.Bounds().Dx(), snap.Image.Bounds().Dy()
	}
	e := whiteboard.New(whiteboard.Options{
		SessionID:  cfg.Session.ID,
		Background: raster.MustColor(cfg.Board.Background, raster.White),
		ReadOnly:   true,
		Log:        l.Logger,
	})
	e.Dispatch(whiteboard.Resize{Width: width, Height: height, PixelRatio: 1})
	if err := e.Apply(snap); err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := e.Download(file, f); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	log.Info().Str("file", *out).Int("annotations", len(snap.Annotations)).Msg("snapshot written")
	return nil
}
