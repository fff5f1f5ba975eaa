package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pystructure/internal/fsops"
	"pystructure/internal/parser"
	"pystructure/internal/plan"
)

type fakeExtractor struct {
	text string
	err  error
	mime string
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, mime string) (string, error) {
	f.mime = mime
	return f.text, f.err
}

func TestRun_FromFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "struct")
	require.NoError(t, os.WriteFile(in, []byte("project/\n    src/\n        main.py\n    README.md\n"), 0o644))
	out := filepath.Join(dir, "out")

	res, err := Run(context.Background(), Options{InPath: in, OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, []plan.Entry{"project/", "project/src/", "project/src/main.py", "project/README.md"}, res.Entries)
	require.Len(t, res.Actions, 4)
	assert.FileExists(t, filepath.Join(out, "project", "src", "main.py"))
	assert.FileExists(t, filepath.Join(out, "project", "README.md"))
}

func TestRun_FromStdin(t *testing.T) {
	out := t.TempDir()
	res, err := Run(context.Background(), Options{
		InPath: "-",
		Stdin:  strings.NewReader("a/\n    x/\n    y.txt\nb/\n"),
		OutDir: out,
	})
	require.NoError(t, err)
	assert.Len(t, res.Actions, 4)
	assert.DirExists(t, filepath.Join(out, "b"))
	assert.NoDirExists(t, filepath.Join(out, "a", "b"))
}

func TestRun_FromImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "tree.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o644))
	ex := &fakeExtractor{text: "app/\n    main.go\n"}

	res, err := Run(context.Background(), Options{ImagePath: img, OutDir: dir, Extractor: ex, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "image/png", ex.mime)
	assert.Equal(t, []plan.Entry{"app/", "app/main.go"}, res.Entries)
	assert.NoDirExists(t, filepath.Join(dir, "app"))
}

func TestRun_ImageErrors(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "tree.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o644))

	_, err := Run(context.Background(), Options{ImagePath: img, OutDir: dir})
	assert.Error(t, err)

	boom := errors.New("quota")
	_, err = Run(context.Background(), Options{ImagePath: img, OutDir: dir, Extractor: &fakeExtractor{err: boom}})
	assert.ErrorIs(t, err, boom)
}

func TestRun_EmptyInput(t *testing.T) {
	_, err := Run(context.Background(), Options{InPath: "-", Stdin: strings.NewReader("  \n\n"), OutDir: t.TempDir()})
	assert.ErrorIs(t, err, parser.ErrEmptyResult)
}

func TestRun_StrictMalformed(t *testing.T) {
	_, err := Run(context.Background(), Options{
		InPath: "-",
		Stdin:  strings.NewReader("a/\n    b.txt\n            c.txt\n"),
		OutDir: t.TempDir(),
		Strict: true,
	})
	var mt *parser.MalformedTreeError
	assert.True(t, errors.As(err, &mt), "got %v", err)
}

func TestRun_PartialActionsOnFailure(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "b"), nil, 0o644))

	res, err := Run(context.Background(), Options{InPath: "-", Stdin: strings.NewReader("a/\nb/\nc/\n"), OutDir: out})
	var fe *fsops.FilesystemError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Len(t, res.Actions, 1)
	assert.DirExists(t, filepath.Join(out, "a"))
}

func TestRun_MissingFile(t *testing.T) {
	_, err := Run(context.Background(), Options{InPath: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStart_DeliversOneOutcome(t *testing.T) {
	out := t.TempDir()
	ch := Start(context.Background(), Options{InPath: "-", Stdin: strings.NewReader("x/\n    y.txt\n"), OutDir: out})

	select {
	case o := <-ch:
		require.NoError(t, o.Err)
		assert.Len(t, o.Result.Actions, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome")
	}
	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after the outcome")
}

func TestRun_ReadError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := Run(context.Background(), Options{InPath: "-", Stdin: iotest.ErrReader(boom), OutDir: t.TempDir()})
	assert.ErrorIs(t, err, boom)
}
