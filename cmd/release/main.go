package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/pixie-bridge/internal/release"
	"github.com/benmeehan/pixie-bridge/internal/store"
	"github.com/benmeehan/pixie-bridge/internal/utils"
	"github.com/benmeehan/pixie-bridge/pkg/s3"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config file] [-env file] get-version | upload -file path -name object -version n [-comments text]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	configFile := flag.String("config", "configs/config.yaml", "path to the configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file with secrets")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	config, err := utils.LoadConfig(*configFile, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := store.Open(ctx, config.Database.URL, 1)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	objectStorage := s3.NewObjectStorage()
	if err := objectStorage.Connect(config.Storage.Endpoint, config.Storage.AccessKey, config.Storage.SecretKey, config.Storage.UseSSL); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to object storage")
	}

	publisher := release.NewPublisher(store.NewPostgresFirmwareRepository(db), objectStorage, config.Storage.FirmwareBucket, log)

	switch flag.Arg(0) {
	case "get-version":
		v, err := publisher.LatestVersion(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read the latest version")
		}
		fmt.Println(v)

	case "upload":
		cmd := flag.NewFlagSet("upload", flag.ExitOnError)
		file := cmd.String("file", "", "firmware binary to upload")
		name := cmd.String("name", "", "object name in the firmware bucket")
		version := cmd.Int("version", 0, "version number, 0 for one past the latest")
		comments := cmd.String("comments", "", "release notes")
		_ = cmd.Parse(flag.Args()[1:])
		if *file == "" || *name == "" {
			cmd.Usage()
			os.Exit(2)
		}

		f, err := os.Open(*file)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open firmware file")
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to stat firmware file")
		}

		v, err := publisher.Publish(ctx, f, info.Size(), *name, *version, *comments)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to publish firmware")
		}
		fmt.Println(v.Version)

	default:
		usage()
	}
}
