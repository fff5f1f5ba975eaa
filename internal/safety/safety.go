package safety

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot — путь после разрешения оказался вне корня.
var ErrOutsideRoot = errors.New("попытка выхода за пределы корня")

// ValidateName проверяет, что имя — один путь-сегмент без разделителей,
// не ".", не ".." и не абсолютный путь.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("пустое имя")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("недопустимое имя: %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("имя не должно содержать разделителей пути: %q", name)
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("абсолютные пути запрещены: %q", name)
	}
	return nil
}

// SafeJoin присоединяет относительный путь rel (со слэшами "/") к root
// и убеждается, что результат остаётся внутри root.
func SafeJoin(root, rel string) (string, error) {
	cleanRoot := filepath.Clean(root)
	p := filepath.Join(cleanRoot, filepath.FromSlash(rel))

	r, err := filepath.Rel(cleanRoot, p)
	if err != nil {
		return "", err
	}
	relSl := filepath.ToSlash(r)
	if relSl == ".." || strings.HasPrefix(relSl, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return p, nil
}
