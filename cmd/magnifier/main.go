package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/csheth/magnifier/internal/config"
	"github.com/csheth/magnifier/internal/export"
	"github.com/csheth/magnifier/internal/pdfbuild"
	"github.com/csheth/magnifier/internal/session"
	"github.com/csheth/magnifier/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.EnvConfigPath+")")
	magnification := flag.Float64("mag", 0, "initial magnification (1.5 to 10)")
	outputDir := flag.String("out", "", "directory for exported files")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	logPath := flag.String("log", "", "append debug logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file.pdf>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	docPath, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		fmt.Println("failed to resolve document path:", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if *magnification > 0 {
		cfg.Viewer.Magnification = *magnification
	}
	if *outputDir != "" {
		cfg.Export.OutputDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	arrow, err := config.ParseHexColor(cfg.Export.ArrowColor)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}

	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "magnifier")
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	api.DisableConfigDir()

	opts := session.OptionsFromConfig(cfg)
	opts.NewBuilder = func() export.DocumentBuilder { return pdfbuild.New() }
	sess := session.New(opts)
	defer sess.Close()

	programOpts := []tea.ProgramOption{tea.WithMouseAllMotion()}
	if !*noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Session:          sess,
			DocumentPath:     docPath,
			RedrawDebounce:   cfg.Viewer.RedrawDebounce,
			NewPageSize:      cfg.NewPage.Size,
			NewPageLandscape: cfg.NewPage.Landscape,
			ArrowColor:       arrow,
		}),
		programOpts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
