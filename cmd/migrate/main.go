package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/noah-isme/crams-api/pkg/config"
	"github.com/noah-isme/crams-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var dir string
	flag.StringVar(&dir, "path", cfg.Database.MigrationsPath, "path to migration files")
	flag.Usage = usage
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	args := flag.Args()
	if len(args) < 1 {
		usage()
		return
	}

	m, err := migrate.New("file://"+dir, cfg.Database.MigrationURL())
	if err != nil {
		logr.Fatal("failed to init migrate", zap.Error(err))
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate up failed", zap.Error(err))
		}
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logr.Fatal("migrate down failed", zap.Error(err))
		}
	case "version":
	case "force":
		if len(args) < 2 {
			logr.Fatal("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			logr.Fatal("invalid version", zap.String("version", args[1]))
		}
		if err := m.Force(v); err != nil {
			logr.Fatal("migrate force failed", zap.Error(err))
		}
	default:
		usage()
		return
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logr.Fatal("failed to read version", zap.Error(err))
	}
	logr.Info("migration state", zap.String("command", args[0]), zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func usage() {
	fmt.Println("Usage: migrate [flags] <up|down|version|force N>")
	flag.PrintDefaults()
}
