package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/internal/recipes/app"
)

func main() {
	var (
		configPath     string
		superuserEmail string
	)

	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.StringVar(&superuserEmail, "createsuperuser", "",
		"create a superuser with this email (password from RECIPES_SUPERUSER_PASSWORD) and exit")
	flag.Parse()

	cfg, err := config.New(configPath)
	if err != nil {
		log.Fatal(err)
	}

	interruptSignals := []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

	ctx, cancel := signal.NotifyContext(context.Background(), interruptSignals...)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Println(err)

		return
	}

	if superuserEmail != "" {
		if err := a.CreateSuperuser(ctx, superuserEmail, os.Getenv("RECIPES_SUPERUSER_PASSWORD")); err != nil {
			log.Println(err)
		}

		if err := a.Stop(ctx); err != nil {
			log.Println(err)
		}

		return
	}

	a.Run(ctx)
}
