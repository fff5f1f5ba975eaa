package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"pystructure/internal/plan"
	"pystructure/internal/safety"
)

// DefaultIndent — единица отступа, если её не удалось определить по входу.
const DefaultIndent = 4

// ErrEmptyResult — во входе не нашлось ни одной строки с именем.
var ErrEmptyResult = errors.New("не найдено ни одного пути в структуре")

// MalformedTreeError — строка ссылается на уровень, для которого не объявлен каталог.
// Возвращается только в строгом режиме.
type MalformedTreeError struct {
	Line  int
	Depth int
	Name  string
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("строка %d: %q на глубине %d, но родительский каталог не объявлен", e.Line, e.Name, e.Depth)
}

// Options — дополнительные режимы разбора.
type Options struct {
	// Strict: пропущенный предок или имя "."/".." — ошибка, а не тихий пропуск.
	Strict bool
	// SkipSummary: игнорировать итоговую строку tree "N directories, M files".
	SkipSummary bool
}

// Parse разбирает tree-подобный текст в упорядоченный список путей.
func Parse(raw string) ([]plan.Entry, error) {
	return ParseWith(raw, Options{})
}

// ParseReader — то же, что Parse, но читает весь r.
func ParseReader(r io.Reader, o Options) ([]plan.Entry, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseWith(string(b), o)
}

// level — открытый каталог на определённой глубине.
type level struct {
	depth int
	name  string
}

// ParseWith разбирает текст с заданными опциями.
//
// Глубина строки = длина префикса из пробелов и псевдографики (в символах),
// делённая на единицу отступа. Единица берётся по первой строке с непустым префиксом.
func ParseWith(raw string, o Options) ([]plan.Entry, error) {
	lines := splitLines(raw)
	unit := indentUnit(lines)

	var out []plan.Entry
	// Стек открытых каталогов, глубины строго возрастают.
	var stack []level

	for _, ln := range lines {
		prefix, rest := splitPrefix(ln.text)
		depth := utf8.RuneCountInString(prefix) / unit

		name := cleanName(rest)
		if name == "" {
			continue
		}
		if o.SkipSummary && isTreeSummary(name) {
			continue
		}

		isDir := strings.HasSuffix(name, "/")
		if o.Strict {
			if err := checkSegments(name); err != nil {
				return nil, fmt.Errorf("строка %d: %w", ln.num, err)
			}
		}

		// Предки — все открытые каталоги с глубиной меньше текущей.
		parts := make([]string, 0, len(stack)+1)
		open := 0
		for _, l := range stack {
			if l.depth >= depth {
				break
			}
			parts = append(parts, l.name)
			open++
		}
		if o.Strict && open < depth {
			return nil, &MalformedTreeError{Line: ln.num, Depth: depth, Name: name}
		}
		parts = append(parts, name)
		out = append(out, plan.Entry(strings.Join(parts, "/")))

		if isDir {
			// Закрываем соседние поддеревья: всё, что на этой глубине и глубже.
			stack = stack[:open]
			stack = append(stack, level{depth: depth, name: strings.TrimSuffix(name, "/")})
		}
	}

	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	return out, nil
}

type line struct {
	num  int
	text string
}

// splitLines режет текст на строки, выбрасывая полностью пустые.
func splitLines(raw string) []line {
	var out []line
	for i, s := range strings.Split(raw, "\n") {
		s = strings.TrimRight(s, "\r")
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, line{num: i + 1, text: s})
	}
	return out
}

func indentUnit(lines []line) int {
	for _, ln := range lines {
		prefix, _ := splitPrefix(ln.text)
		if n := utf8.RuneCountInString(prefix); n > 0 {
			return n
		}
	}
	return DefaultIndent
}

// isMarker — символы, из которых может состоять отступ.
func isMarker(r rune) bool {
	switch r {
	case ' ', '│', '├', '─', '└':
		return true
	}
	return false
}

// splitPrefix отделяет ведущий отступ от остатка строки.
func splitPrefix(s string) (prefix, rest string) {
	i := strings.IndexFunc(s, func(r rune) bool { return !isMarker(r) })
	if i == -1 {
		return s, ""
	}
	return s[:i], s[i:]
}

// cleanName убирает комментарий после '#', пробелы и нормализует слэши.
func cleanName(rest string) string {
	if i := strings.IndexByte(rest, '#'); i != -1 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	return strings.ReplaceAll(rest, `\`, "/")
}

// checkSegments проверяет каждый сегмент имени (имя может быть и "a/b/c.txt").
func checkSegments(name string) error {
	for _, seg := range strings.Split(strings.TrimSuffix(name, "/"), "/") {
		if err := safety.ValidateName(seg); err != nil {
			return err
		}
	}
	return nil
}

// Очень простая эвристика: строка-резюме tree.
func isTreeSummary(name string) bool {
	s := strings.ToLower(name)
	return (strings.Contains(s, "directories") || strings.Contains(s, "directory")) &&
		(strings.Contains(s, "files") || strings.Contains(s, "file")) &&
		strings.ContainsAny(s, "0123456789")
}
