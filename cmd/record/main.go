// Command record watches a human play and writes labeled frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jordanella.com/subway-runner-go/internal/bootstrap"
	"jordanella.com/subway-runner-go/internal/config"
	"jordanella.com/subway-runner-go/internal/dataset"
	"jordanella.com/subway-runner-go/internal/pipeline"
	"jordanella.com/subway-runner-go/internal/resolver"
)

func main() {
	os.Exit(run())
}

func run() int {
	settingsPath := flag.String("settings", config.DefaultPath, "Path to settings file")
	output := flag.String("out", "", "Override the dataset output directory")
	initSettings := flag.Bool("init", false, "Write a settings file with default values and exit")
	flag.Parse()

	if *initSettings {
		if err := config.SaveToINI(config.NewDefaultConfig(), *settingsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write settings: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote default settings to %s\n", *settingsPath)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Setup(ctx, *settingsPath, "Recorder")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer env.Close()

	cfg := env.Config
	if *output != "" {
		cfg.Recorder.OutputDir = *output
	}

	var book *dataset.LabelBook
	if cfg.Recorder.LabelBook {
		book, err = dataset.OpenLabelBook(cfg.LabelBookPath(), cfg.Recorder.LabelBookFlush)
		if err != nil {
			env.Logger.Fatal("Failed to open label book", err)
			return 1
		}
	}

	recorder := pipeline.NewRecorder(env.Bridge, dataset.NewWriter(cfg.Recorder.OutputDir, cfg.Recorder.JPEGQuality), pipeline.RecorderOptions{
		Interval:      cfg.Recorder.Interval,
		IdleThreshold: cfg.Recorder.IdleThreshold,
		EventBuffer:   cfg.Recorder.EventBuffer,
		TouchSize:     resolver.ScreenSize{Width: cfg.Recorder.TouchWidth, Height: cfg.Recorder.TouchHeight},
		ScratchPath:   cfg.ScratchCapturePath(),
		DeviceSerial:  cfg.Device.Serial,
		LabelBook:     book,
		Journal:       env.Journal(),
		Bus:           env.Bus,
		Logger:        env.Logger,
	})

	fmt.Println("Play normally on the device. Press Ctrl+C to stop recording.")

	summary, err := recorder.Run(ctx)
	fmt.Print(summary)
	if err != nil {
		env.Logger.Fatal("Recorder stopped", err)
		return 1
	}
	return 0
}
