package tex2pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
)

func TestCreateWorkDir(t *testing.T) {
	t.Parallel()

	t.Run("creates base and leaf", func(t *testing.T) {
		t.Parallel()

		base := filepath.Join(t.TempDir(), "nested", "base")
		wd, err := CreateWorkDir(base)
		if err != nil {
			t.Fatalf("CreateWorkDir() error = %v", err)
		}
		defer wd.Destroy()

		info, err := os.Stat(wd.Path())
		if err != nil {
			t.Fatalf("work directory missing: %v", err)
		}
		if !info.IsDir() {
			t.Error("work directory is not a directory")
		}
		if filepath.Dir(wd.Path()) != base {
			t.Errorf("parent = %q, want %q", filepath.Dir(wd.Path()), base)
		}
		if wd.File("input.tex") != filepath.Join(wd.Path(), "input.tex") {
			t.Errorf("File() = %q", wd.File("input.tex"))
		}
	})

	t.Run("name has pid, sequence and token", func(t *testing.T) {
		t.Parallel()

		wd, err := CreateWorkDir(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		defer wd.Destroy()

		pattern := fmt.Sprintf(`^%d-\d+-[0-9a-f]{%d}$`, os.Getpid(), workDirTokenSize)
		if !regexp.MustCompile(pattern).MatchString(wd.Name()) {
			t.Errorf("Name() = %q, want match for %s", wd.Name(), pattern)
		}
	})

	t.Run("empty base returns ErrWorkDir", func(t *testing.T) {
		t.Parallel()

		_, err := CreateWorkDir("")
		if !errors.Is(err, ErrWorkDir) {
			t.Errorf("CreateWorkDir(\"\") error = %v, want ErrWorkDir", err)
		}
	})

	t.Run("base is a file returns ErrWorkDir", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := CreateWorkDir(file)
		if !errors.Is(err, ErrWorkDir) {
			t.Errorf("CreateWorkDir(file) error = %v, want ErrWorkDir", err)
		}
	})
}

func TestCreateWorkDir_ConcurrentUnique(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	const n = 64

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wd, err := CreateWorkDir(base)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[wd.Path()] {
				t.Errorf("duplicate work directory %s", wd.Path())
			}
			seen[wd.Path()] = true
		}()
	}
	wg.Wait()

	if got := len(dirEntries(t, base)); got != n {
		t.Errorf("base has %d entries, want %d", got, n)
	}
}

func TestWorkDir_Destroy(t *testing.T) {
	t.Parallel()

	t.Run("removes contents", func(t *testing.T) {
		t.Parallel()

		wd, err := CreateWorkDir(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if err := os.MkdirAll(wd.File("sub"), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(wd.File("sub/input.aux"), []byte(`\relax`), 0o600); err != nil {
			t.Fatal(err)
		}

		if err := wd.Destroy(); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}
		if _, err := os.Stat(wd.Path()); !os.IsNotExist(err) {
			t.Errorf("work directory still exists: %v", err)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		wd, err := CreateWorkDir(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		for i := range 3 {
			if err := wd.Destroy(); err != nil {
				t.Errorf("Destroy() call %d error = %v", i+1, err)
			}
		}
	})

	t.Run("tolerates external removal", func(t *testing.T) {
		t.Parallel()

		wd, err := CreateWorkDir(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if err := os.RemoveAll(wd.Path()); err != nil {
			t.Fatal(err)
		}
		if err := wd.Destroy(); err != nil {
			t.Errorf("Destroy() after external removal error = %v", err)
		}
	})

	t.Run("nil receiver", func(t *testing.T) {
		t.Parallel()

		var wd *WorkDir
		if err := wd.Destroy(); err != nil {
			t.Errorf("nil Destroy() error = %v", err)
		}
	})
}
