package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peluqueria/salond/config"
	"github.com/peluqueria/salond/internal/api"
	"github.com/peluqueria/salond/internal/app"
	"github.com/peluqueria/salond/internal/realtime"
	"github.com/peluqueria/salond/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "migrate the database, ensure the admin account and exit")
	h        = flag.Bool("h", false, "help usage")
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}

	cfg, err := config.Load(*conffile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "init application:", err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		zap.L().Info("database initialized")
		return
	}

	hub := realtime.NewHub()
	if err := application.Events().SubscribeAll(hub.Broadcast); err != nil {
		zap.L().Fatal("subscribe websocket hub", zap.Error(err))
	}

	srv := webserver.NewServer(application)
	api.Register(srv)
	srv.ApiGET("/ws", realtime.Handler(hub, srv.OriginAllowed))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Start(gctx, 10*time.Second)
	})
	if err := g.Wait(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
