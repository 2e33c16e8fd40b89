package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = "up|down|status|to|create|validate"

func main() {
	cmd := flag.String("cmd", "up", "migration command: "+usage)
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations built into the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	// create and validate only touch files, so they run without config or a database.
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.Create(target, *name, time.Now())
		exitOn(ctx, logg, "create migration", err)
		fmt.Println(path)
		return
	case "validate":
		source, err := migrate.Source(*dir)
		exitOn(ctx, logg, "open migrations", err)
		exitOn(ctx, logg, "validate migrations", migrate.Validate(source))
		logg.Info(ctx, "migrations valid")
		return
	}

	proc := bootstrap.Start("migrate")
	defer proc.Close()
	logg = proc.Log
	ctx = logg.WithFields(ctx, map[string]any{"env": proc.Config.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, proc.Config.DB, logg)
	proc.Must("connect database", err)
	proc.Defer("database", dbClient)

	sqlDB, err := dbClient.DB().DB()
	proc.Must("sql handle", err)
	source, err := migrate.Source(*dir)
	proc.Must("open migrations", err)
	m, err := migrate.New(sqlDB, source, logg)
	proc.Must("init migrator", err)

	switch *cmd {
	case "up":
		err = m.Up(ctx)
	case "down":
		err = m.Down(ctx)
	case "status":
		err = m.Status(ctx)
	case "to":
		err = m.To(ctx, *version)
	default:
		err = fmt.Errorf("unknown -cmd %q, want %s", *cmd, usage)
	}
	proc.Must(*cmd, err)
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
