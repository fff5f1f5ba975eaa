package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pystructure/internal/extract"
	"pystructure/internal/fsops"
	"pystructure/internal/parser"
	"pystructure/internal/plan"
)

// Options — все настройки запуска утилиты.
type Options struct {
	InPath      string // файл со структурой, "-" — stdin
	ImagePath   string // картинка со структурой (вместо InPath)
	OutDir      string // каталог, относительно которого создаются пути
	DryRun      bool
	Strict      bool
	SkipSummary bool
	DirPerm     os.FileMode
	FilePerm    os.FileMode
	ExecGlobs   []string
	DBMode0600  bool

	Stdin     io.Reader
	Extractor extract.Extractor
	Logger    *slog.Logger
}

// Result — что было разобрано и что сделано.
type Result struct {
	BaseDir string
	Entries []plan.Entry
	Actions []plan.Action
}

// Outcome — результат фоновой работы.
type Outcome struct {
	Result Result
	Err    error
}

// Start запускает Run в отдельной горутине и отдаёт ровно один Outcome в канал.
func Start(ctx context.Context, o Options) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := Run(ctx, o)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// Run — главная функция приложения: читает вход, парсит, применяет.
// Действия, выполненные до ошибки, возвращаются в Result.Actions.
func Run(ctx context.Context, o Options) (Result, error) {
	log := o.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	res := Result{BaseDir: o.OutDir}
	if res.BaseDir == "" {
		res.BaseDir = "."
	}

	// 1) Открываем источник: картинка, файл или stdin.
	src, err := openSource(ctx, o, log)
	if err != nil {
		return res, err
	}
	defer src.Close()

	// 2) Парсим дерево в список путей.
	entries, err := parser.ParseReader(src, parser.Options{Strict: o.Strict, SkipSummary: o.SkipSummary})
	if err != nil {
		return res, fmt.Errorf("ошибка парсинга структуры: %w", err)
	}
	res.Entries = entries
	log.Debug("parsed", "entries", len(entries))

	// 3) Применяем к файловой системе.
	actions, err := fsops.Apply(fsops.ApplyArgs{
		Entries:    entries,
		BaseDir:    res.BaseDir,
		DryRun:     o.DryRun,
		DirPerm:    o.DirPerm,
		FilePerm:   o.FilePerm,
		ExecGlobs:  o.ExecGlobs,
		DBMode0600: o.DBMode0600,
		Logger:     log,
	})
	res.Actions = actions
	return res, err
}

// openSource возвращает поток с текстом дерева.
func openSource(ctx context.Context, o Options, log *slog.Logger) (io.ReadCloser, error) {
	if o.ImagePath != "" {
		if o.Extractor == nil {
			return nil, errors.New("не настроено распознавание изображений")
		}
		img, mime, err := extract.ReadImage(o.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать изображение %q: %w", o.ImagePath, err)
		}
		log.Info("analyzing image", "path", o.ImagePath, "mime", mime)
		txt, err := o.Extractor.Extract(ctx, img, mime)
		if err != nil {
			return nil, fmt.Errorf("не удалось распознать структуру: %w", err)
		}
		log.Debug("image analysis complete", "bytes", len(txt))
		return io.NopCloser(strings.NewReader(txt)), nil
	}

	if o.InPath == "-" {
		if o.Stdin != nil {
			return io.NopCloser(o.Stdin), nil
		}
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(o.InPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть входной файл %q: %w", o.InPath, err)
	}
	return f, nil
}
