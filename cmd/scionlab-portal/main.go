package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-print"

	registration "github.com/scionlab/go-registration"
	"github.com/scionlab/go-registration/activitymap"
	"github.com/scionlab/go-registration/config"
	"github.com/scionlab/go-registration/mail"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := gconfig.New(config.Defaults())
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	conf := cfg.Raw()
	if err := conf.Validate(); err != nil {
		panic(err)
	}

	logger := registration.DefaultLogger()

	if conf.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(conf))
		fmt.Println("============")
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, conf.GetPersistence().GetPingTimeout())
	db, err := registration.OpenSQLite(pingCtx, conf.GetPersistence().GetDSN())
	pingCancel()
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := registration.CreateSchema(ctx, db); err != nil {
		panic(err)
	}

	mailer, err := mail.New(conf.GetMail(), logger)
	if err != nil {
		panic(err)
	}

	portal, err := registration.NewPortal(db, conf.GetAuth(), conf.GetRegistration(),
		registration.WithPortalLogger(logger),
		registration.WithPortalMailer(mailer),
		registration.WithPortalActivitySink(activitymap.NewLogSink(logger)),
		registration.WithPortalDebug(conf.Debug),
	)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := portal.Listen(ctx, conf.GetServer().GetAddress()); err != nil {
			logger.Error("server error: %v", err)
			cancel()
		}
	}()

	logger.Info("serving %s on %s", conf.Name, conf.GetServer().GetAddress())

	select {
	case sig := <-WaitExitSignal():
		logger.Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}
	cancel()
}

func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}
