package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoAPIKey         = errors.New("extract: не задан ключ API")
	ErrEmptyResponse    = errors.New("extract: модель вернула пустой ответ")
	ErrUnsupportedImage = errors.New("extract: неподдерживаемый тип изображения")
)

// Extractor превращает картинку с деревом каталогов в tree-текст.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Prompt просит модель выдать дерево в том виде, который понимает parser.
const Prompt = `Analyze the provided image which shows a directory tree structure.
Extract every folder and file, starting from the top-level folder shown in the image.

Instructions:
1. Put every folder and file on its own line, in the order shown.
2. Indent each child by exactly 4 spaces per nesting level relative to its parent.
3. Folder names must end with a forward slash (/). File names must not.
4. Drop all comments (anything after '#').
5. Drop the tree-drawing characters (like ├──, └──, │, ─).
6. Output ONLY the tree, nothing else: no explanations, no code fences.`

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
}

func supported(mime string) bool {
	for _, m := range mimeByExt {
		if m == mime {
			return true
		}
	}
	return false
}

// ReadImage читает файл изображения и определяет MIME-тип:
// сначала по расширению, затем по содержимому.
func ReadImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = http.DetectContentType(data)
		if i := strings.IndexByte(mime, ';'); i != -1 {
			mime = mime[:i]
		}
	}
	if !supported(mime) {
		return nil, "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedImage, filepath.Base(path), mime)
	}
	return data, mime, nil
}

// CleanResponse убирает markdown-ограждения ``` и пустые строки по краям.
func CleanResponse(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		out = append(out, l)
	}
	return strings.Trim(strings.Join(out, "\n"), "\n")
}
