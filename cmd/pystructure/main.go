package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"pystructure/internal/app"
	"pystructure/internal/config"
	"pystructure/internal/extract"
)

// Версию можно переопределить через -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run разбирает аргументы, выполняет работу и возвращает код выхода.
func run(args []string, stdout, stderr io.Writer) int {
	name := filepath.Base(os.Args[0])
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stdout)

	// Флаги. Делаем их очевидными и простыми.
	in := fs.String("in", "struct", "Путь к входному файлу со структурой ('-' для stdin)")
	image := fs.String("image", "", "Картинка со структурой (распознаётся через Gemini, вместо -in)")
	out := fs.String("out", ".", "Каталог, относительно которого создаются пути")
	dry := fs.Bool("dry", false, "Dry-run: только показать, что будет создано")
	strict := fs.Bool("strict", false, "Строгий режим: пропущенный родительский каталог — ошибка")
	skipSummary := fs.Bool("skip-summary", false, "Игнорировать строку tree вида \"N directories, M files\"")
	verbose := fs.Bool("v", false, "Подробный вывод")
	quiet := fs.Bool("q", false, "Тихий режим (подавить обычные сообщения)")
	cfgPath := fs.String("config", "", "YAML-файл с настройками по умолчанию")
	model := fs.String("model", "", "Модель Gemini (по умолчанию из конфига)")

	dpermStr := fs.String("dperm", "", "Права для каталогов (восьмерично, например 0755)")
	fpermStr := fs.String("fperm", "", "Права для файлов (восьмерично, например 0644)")
	execGlob := fs.String("exec-glob", "", "Список glob-шаблонов для исполняемых файлов (через запятую)")
	db0600 := fs.Bool("db-0600", false, "Ставить 0600 на файлы *.db/*.sqlite/*.sqlite3")

	help := fs.Bool("help", false, "Показать справку и выйти")
	helpShort := fs.Bool("h", false, "Показать справку и выйти (синоним -help)")
	showVersion := fs.Bool("version", false, "Показать версию и выйти")

	fs.Usage = func() {
		fmt.Fprintf(stdout, `
%s — создаёт каталоги и пустые файлы по дереву из текста или картинки.

Использование:
  %s -in struct [-out DIR] [-dry] [-strict] [-v|-q]
  %s -image tree.png [-out DIR] [-model gemini-2.5-flash]

Флаги:
`, name, name, name)
		fs.PrintDefaults()
		fmt.Fprintf(stdout, `
Формат входа:
  Одна строка — один файл или каталог. Вложенность задаётся отступом
  (пробелы и/или ├── └── │ ─). Каталоги заканчиваются на /.
  Всё после # считается комментарием.

Флаги важнее конфига, конфиг важнее встроенных значений.

Окружение:
  GEMINI_API_KEY, PYSTRUCTURE_MODEL, PYSTRUCTURE_DPERM, PYSTRUCTURE_FPERM (читается и .env)

Примеры:
  %[1]s -in struct -out .
  cat struct | %[1]s -in - -out ./dst -v
  %[1]s -image tree.png -dry
`, name)
	}

	// Если без аргументов — просто показать помощь
	if len(args) == 0 {
		fs.Usage()
		return 0
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *help || *helpShort {
		fs.Usage()
		return 0
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	fail := func(err error) int {
		fmt.Fprintf(stderr, "ошибка: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logOut := stderr
	if *quiet {
		logOut = io.Discard
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fail(err)
	}

	// Явно заданные флаги важнее конфига.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	dperm := cfg.DirPerm.Mode()
	if set["dperm"] {
		if dperm, err = config.ParsePerm(*dpermStr, 0o755); err != nil {
			return fail(fmt.Errorf("неверные права -dperm: %w", err))
		}
	}
	fperm := cfg.FilePerm.Mode()
	if set["fperm"] {
		if fperm, err = config.ParsePerm(*fpermStr, 0o644); err != nil {
			return fail(fmt.Errorf("неверные права -fperm: %w", err))
		}
	}
	globs := cfg.ExecGlobs
	if set["exec-glob"] {
		globs = config.SplitGlobs(*execGlob)
	}
	if set["model"] {
		cfg.Model = *model
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.Options{
		InPath:      *in,
		ImagePath:   *image,
		OutDir:      *out,
		DryRun:      *dry,
		Strict:      pick(set, "strict", *strict, cfg.Strict),
		SkipSummary: pick(set, "skip-summary", *skipSummary, cfg.SkipSummary),
		DirPerm:     dperm,
		FilePerm:    fperm,
		ExecGlobs:   globs,
		DBMode0600:  pick(set, "db-0600", *db0600, cfg.DBMode0600),
		Logger:      logger,
	}
	if *image != "" {
		ex, err := extract.NewGemini(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return fail(err)
		}
		logger.Info("using model", "name", ex.Name())
		opts.Extractor = ex
	}

	// Работа идёт в фоне, результат приходит по каналу.
	var o app.Outcome
	select {
	case o = <-app.Start(ctx, opts):
	case <-ctx.Done():
		return fail(fmt.Errorf("прервано: часть структуры могла уже быть создана в %s", *out))
	}

	if !*quiet {
		for _, a := range o.Result.Actions {
			fmt.Fprintln(stdout, a.Describe())
		}
	}
	if o.Err != nil {
		return fail(o.Err)
	}
	if !*quiet {
		if *dry {
			fmt.Fprintf(stdout, "Dry-run: %d элементов\n", len(o.Result.Actions))
		} else {
			fmt.Fprintf(stdout, "Готово: %d элементов в %s\n", len(o.Result.Actions), o.Result.BaseDir)
		}
	}
	return 0
}

// pick возвращает значение флага, если он задан явно, иначе значение из конфига.
func pick[T any](set map[string]bool, name string, flagVal, cfgVal T) T {
	if set[name] {
		return flagVal
	}
	return cfgVal
}
