package fsops

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pystructure/internal/plan"
	"pystructure/internal/safety"
)

// ErrEmptyInput — нечего создавать.
var ErrEmptyInput = errors.New("пустой список путей: нечего создавать")

// FilesystemError — ошибка создания каталога или файла с путём, на котором она произошла.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *FilesystemError) Unwrap() error { return e.Err }

// ApplyArgs — параметры применения списка путей к файловой системе.
type ApplyArgs struct {
	Entries    []plan.Entry
	BaseDir    string
	DryRun     bool
	DirPerm    os.FileMode
	FilePerm   os.FileMode
	ExecGlobs  []string
	DBMode0600 bool
	Logger     *slog.Logger
}

// Apply создаёт каталоги и пустые файлы по порядку и возвращает журнал действий.
// При ошибке останавливается сразу; уже созданное остаётся на месте.
func Apply(a ApplyArgs) ([]plan.Action, error) {
	if len(a.Entries) == 0 {
		return nil, ErrEmptyInput
	}
	if a.DirPerm == 0 {
		a.DirPerm = 0o755
	}
	if a.FilePerm == 0 {
		a.FilePerm = 0o644
	}
	if a.Logger == nil {
		a.Logger = slog.New(slog.DiscardHandler)
	}

	actions := make([]plan.Action, 0, len(a.Entries))
	for _, e := range a.Entries {
		if strings.TrimSpace(string(e)) == "" {
			continue
		}
		target, err := safety.SafeJoin(a.BaseDir, e.Clean())
		if err != nil {
			return actions, &FilesystemError{Op: "resolve", Path: string(e), Err: err}
		}

		var act plan.Action
		if e.IsDir() {
			act, err = ensureDir(a, target)
		} else {
			act, err = ensureFile(a, target)
		}
		if err != nil {
			return actions, err
		}
		actions = append(actions, act)
	}
	return actions, nil
}

func ensureDir(a ApplyArgs, path string) (plan.Action, error) {
	act := plan.Action{Kind: plan.Directory, Path: path}

	// Симлинк на каталог считается каталогом.
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		// Каталог уже существует — ок
		act.Existed = true
		a.Logger.Debug("dir exists", "path", path)
		return act, nil

	case err == nil && !info.IsDir():
		return act, &FilesystemError{Op: "mkdir", Path: path, Err: errors.New("по этому пути уже существует файл")}

	case os.IsNotExist(err):
		if a.DryRun {
			act.Planned = true
			a.Logger.Debug("mkdir -p (dry)", "path", path)
			return act, nil
		}
		if err := mkdirAll(a, path); err != nil {
			return act, err
		}
		a.Logger.Debug("dir", "path", path)
		return act, nil

	default:
		return act, &FilesystemError{Op: "stat", Path: path, Err: err}
	}
}

func ensureFile(a ApplyArgs, path string) (plan.Action, error) {
	act := plan.Action{Kind: plan.File, Path: path}

	// Готовим родительскую директорию
	parent := filepath.Dir(path)
	if _, err := ensureDir(a, parent); err != nil {
		return act, err
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return act, &FilesystemError{Op: "create", Path: path, Err: errors.New("по этому пути уже есть каталог")}

	case err == nil:
		// Файл существует — содержимое не трогаем
		act.Existed = true
		a.Logger.Debug("file exists", "path", path)
		return act, nil

	case os.IsNotExist(err):
		if a.DryRun {
			act.Planned = true
			a.Logger.Debug("touch (dry)", "path", path)
			return act, nil
		}
		mode := chooseFileMode(a, path)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
		if err != nil {
			return act, &FilesystemError{Op: "create", Path: path, Err: err}
		}
		if err := f.Close(); err != nil {
			return act, &FilesystemError{Op: "close", Path: path, Err: err}
		}
		if err := chmod(path, mode); err != nil {
			return act, err
		}
		a.Logger.Debug("file", "path", path, "mode", mode)
		return act, nil

	default:
		return act, &FilesystemError{Op: "stat", Path: path, Err: err}
	}
}

// mkdirAll создаёт каталог с предками и выставляет DirPerm только на новые каталоги.
func mkdirAll(a ApplyArgs, path string) error {
	// Ищем ближайшего существующего предка, чтобы знать, что создали мы.
	var created []string
	for p := path; ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		created = append(created, p)
		if filepath.Dir(p) == p {
			break
		}
	}

	if err := os.MkdirAll(path, a.DirPerm); err != nil {
		return &FilesystemError{Op: "mkdir", Path: path, Err: err}
	}
	for _, p := range created {
		if err := chmod(p, a.DirPerm); err != nil {
			return err
		}
	}
	return nil
}

func chooseFileMode(a ApplyArgs, path string) os.FileMode {
	rel := path
	if r, err := filepath.Rel(a.BaseDir, path); err == nil {
		rel = r
	}
	relSl := filepath.ToSlash(rel)
	lower := strings.ToLower(relSl)

	// DB 0600 (если включено)
	if a.DBMode0600 && (strings.HasSuffix(lower, ".db") ||
		strings.HasSuffix(lower, ".sqlite") ||
		strings.HasSuffix(lower, ".sqlite3")) {
		return 0o600
	}

	// Исполняемые по glob: сначала по полному пути, затем по имени
	for _, pat := range a.ExecGlobs {
		p := filepath.ToSlash(pat)
		if ok, _ := filepath.Match(p, relSl); ok {
			return 0o755
		}
		if !strings.Contains(p, "/") {
			if ok, _ := filepath.Match(p, filepath.Base(relSl)); ok {
				return 0o755
			}
		}
	}
	return a.FilePerm
}

// chmod выставляет права поверх umask.
func chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return &FilesystemError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}
