package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"jordanella.com/desktop-uitest/internal/actions"
	"jordanella.com/desktop-uitest/internal/config"
	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/database"
	"jordanella.com/desktop-uitest/internal/input"
	"jordanella.com/desktop-uitest/internal/logging"
	"jordanella.com/desktop-uitest/internal/ocr"
	"jordanella.com/desktop-uitest/pkg/templates"
)

type options struct {
	configPath string
	envPath    string
	init       bool
	locate     string
	click      string
	wait       string
	read       string
	routine    string
	screenshot string
	screen     string
	name       string
	export     string
	keepDays   int
	timeout    float64
	confidence float64
}

func main() {
	opts := options{}
	flag.StringVar(&opts.configPath, "config", "settings.ini", "Path to settings file")
	flag.StringVar(&opts.envPath, "env", ".env", "Path to env override file")
	flag.BoolVar(&opts.init, "init", false, "Create the directory layout and write default settings")
	flag.StringVar(&opts.locate, "locate", "", "Locate an element (image path or page.element) and print its position")
	flag.StringVar(&opts.click, "click", "", "Click an element (image path or page.element)")
	flag.StringVar(&opts.wait, "wait", "", "Wait for an element to appear")
	flag.StringVar(&opts.read, "read", "", "Read the text inside an element")
	flag.StringVar(&opts.routine, "run", "", "Run a routine YAML file")
	flag.StringVar(&opts.screenshot, "screenshot", "", "Save a screenshot named after this purpose")
	flag.StringVar(&opts.screen, "screen", "", "Search a saved screenshot instead of the live screen; input is only recorded")
	flag.StringVar(&opts.name, "name", "uitest", "Run name in the journal")
	flag.StringVar(&opts.export, "export", "", "Copy the journal to this path after the run")
	flag.IntVar(&opts.keepDays, "keep-days", 0, "Delete journal runs older than this many days (0 keeps all)")
	flag.Float64Var(&opts.timeout, "timeout", 0, "Timeout in seconds (default: from settings)")
	flag.Float64Var(&opts.confidence, "confidence", 0, "Match confidence 0-1 (default: from settings)")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("uitest: %v", err)
	}
}

func run(opts options) error {
	settings, err := config.Load(opts.configPath, opts.envPath)
	if err != nil {
		return err
	}
	if opts.confidence > 0 {
		settings.Confidence = opts.confidence
	}
	if opts.timeout > 0 {
		settings.Timeout = time.Duration(opts.timeout * float64(time.Second))
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if opts.init {
		if err := settings.EnsureDirectories(); err != nil {
			return err
		}
		if err := config.SaveToINI(settings, opts.configPath); err != nil {
			return err
		}
		log.Printf("Project initialised, settings written to %s", opts.configPath)
		return nil
	}

	level := logging.ParseLevel(settings.LogLevel)
	logger := logging.NewLogger("uitest").SetMinLevel(level)
	if settings.LogToFile {
		runLogs, err := logging.SetupRunLogs(settings.LogDir, level, time.Now())
		if err != nil {
			return err
		}
		defer runLogs.Close()
		logger = runLogs.Logger
	}

	reporter := logging.NewFailureReporter(logger.Named("failures"))
	engineOpts := []actions.Option{
		actions.FromSettings(settings),
		actions.WithLogger(logger.Named("engine")),
		actions.WithReporter(reporter),
		actions.WithTextReader(ocr.NewTesseractReader(settings.OCRLanguage)),
	}

	var journal *database.Journal
	if settings.JournalEnabled {
		db, err := database.Open(settings.JournalPath)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetLogger(logger.Named("journal"))
		if err := db.RunMigrations(); err != nil {
			return err
		}
		if opts.keepDays > 0 {
			if _, err := db.Prune(time.Now().AddDate(0, 0, -opts.keepDays)); err != nil {
				return err
			}
		}
		if opts.export != "" {
			defer func() {
				if err := db.Snapshot(opts.export); err != nil {
					logger.Error("failed to export journal", err)
				}
			}()
		}
		journal, err = db.BeginRun(opts.name)
		if err != nil {
			return err
		}
		reporter.WithRecorder(journal)
		engineOpts = append(engineOpts, actions.WithStepRecorder(journal))
	}

	capturer, inputter, err := backends(opts.screen)
	if err != nil {
		return err
	}
	engine := actions.NewEngine(capturer, inputter, engineOpts...)
	reporter.WithScreenshots(engine)

	registry := templates.NewElementRegistry(settings.TestDataDir).WithDefaultConfidence(settings.Confidence)
	if _, err := os.Stat(settings.PagesDir); err == nil {
		if err := registry.LoadFromDirectory(settings.PagesDir); err != nil {
			return err
		}
		for _, missing := range registry.MissingImages() {
			logger.WarnWithContext("reference image missing", map[string]interface{}{"path": missing})
		}
	}

	runErr := execute(opts, settings, engine, registry)

	if rec, ok := inputter.(*input.Recorder); ok {
		for _, event := range rec.Events() {
			fmt.Println(event)
		}
	}

	if journal != nil {
		message := ""
		if runErr != nil {
			message = runErr.Error()
		}
		if err := journal.Finish(message); err != nil {
			logger.Error("failed to finish run", err)
		}
	}
	return runErr
}

// backends returns the live screen and input, or a saved screenshot and an
// input recorder when screenPath is set
func backends(screenPath string) (cv.Capturer, input.Inputter, error) {
	if screenPath == "" {
		return cv.NewScreenCapturer(), input.NewRobotInputter(), nil
	}
	frame, err := templates.NewImageCache().Load(screenPath)
	if err != nil {
		return nil, nil, err
	}
	return cv.NewStaticCapturer(frame), input.NewRecorder(), nil
}

func execute(opts options, settings *config.Settings, engine *actions.Engine, registry *templates.ElementRegistry) error {
	timeout := settings.Timeout

	resolve := func(ref string) (cv.Template, error) {
		if strings.ContainsAny(ref, `/\`) || strings.HasSuffix(ref, ".png") {
			return cv.Template{Name: ref, Path: ref}, nil
		}
		return registry.Lookup(ref)
	}

	if opts.locate != "" {
		t, err := resolve(opts.locate)
		if err != nil {
			return err
		}
		result, err := engine.FindTemplate(t, timeout)
		if err != nil {
			return err
		}
		fmt.Printf("%s found at %s (confidence %.3f)\n", opts.locate, result.Center, result.Confidence)
	}

	if opts.wait != "" {
		t, err := resolve(opts.wait)
		if err != nil {
			return err
		}
		if !engine.WaitForTemplate(t, timeout) {
			return fmt.Errorf("%s did not appear within %v", opts.wait, timeout)
		}
		fmt.Printf("%s appeared\n", opts.wait)
	}

	if opts.click != "" {
		t, err := resolve(opts.click)
		if err != nil {
			return err
		}
		if err := engine.ClickTemplate(t, timeout, actions.ClickOptions{}); err != nil {
			return err
		}
	}

	if opts.read != "" {
		t, err := resolve(opts.read)
		if err != nil {
			return err
		}
		text, err := engine.ReadTemplateText(t, timeout)
		if err != nil {
			return err
		}
		fmt.Println(text)
	}

	if opts.routine != "" {
		loader := actions.NewRoutineLoader(engine, timeout).WithResolver(registry)
		ab, err := loader.LoadFromFile(opts.routine)
		if err != nil {
			return err
		}
		if err := ab.Execute(); err != nil {
			return err
		}
	}

	if opts.screenshot != "" {
		path, err := engine.TakeScreenshot(opts.screenshot, nil)
		if err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}
