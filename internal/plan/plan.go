package plan

import "strings"

// Entry — один путь, относительный к будущему корню назначения.
// Завершающий "/" означает каталог, его отсутствие — файл.
type Entry string

// IsDir — это каталог?
func (e Entry) IsDir() bool { return strings.HasSuffix(string(e), "/") }

// Clean возвращает путь без завершающего слэша.
func (e Entry) Clean() string { return strings.TrimSuffix(string(e), "/") }

func (e Entry) String() string { return string(e) }

// Kind — что именно было создано.
type Kind int

const (
	Directory Kind = iota
	File
)

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Action — запись о действии над файловой системой, в порядке входа.
type Action struct {
	Kind    Kind
	Path    string // путь, разрешённый относительно BaseDir
	Existed bool   // уже существовал, ничего не создавали
	Planned bool   // dry-run: только запланировано
}

// Describe — строка для журнала.
func (a Action) Describe() string {
	var b strings.Builder
	switch {
	case a.Planned:
		b.WriteString("Would create ")
	case a.Existed:
		b.WriteString("Exists ")
	default:
		b.WriteString("Created ")
	}
	if a.Kind == Directory {
		b.WriteString("directory: ")
	} else {
		b.WriteString("file     : ")
	}
	b.WriteString(a.Path)
	return b.String()
}
