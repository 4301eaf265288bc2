package e2e

import (
	"bytes"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	expect "github.com/Netflix/go-expect"
	"github.com/creack/pty"

	"github.com/yx-shi/NewsClient-sub001/internal/news"
	"github.com/yx-shi/NewsClient-sub001/internal/stubfeed"
	"github.com/yx-shi/NewsClient-sub001/internal/userstate"
)

// buildNewsreader builds the newsreader binary for testing.
func buildNewsreader(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "newsreader")

	rootDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	rootDir = filepath.Join(rootDir, "..", "..")

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/newsreader")
	cmd.Dir = rootDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

// seedChildState writes the saved categories where the child process
// will look for them.
func seedChildState(t *testing.T, dataHome string, cats ...news.Category) {
	t.Helper()
	dir := filepath.Join(dataHome, "newsreader")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	st, err := userstate.NewStore(filepath.Join(dir, "userstate.db"))
	if err != nil {
		t.Fatalf("failed to seed state store: %v", err)
	}
	defer st.Close()
	if err := st.SetSelectedCategories(cats); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}
}

func TestE2E_BrowseREPL(t *testing.T) {
	binPath := buildNewsreader(t)

	stub := stubfeed.New(stubfeed.GenerateArticles([]news.Category{"科技"}, 15))
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	// Fresh XDG tree so the child never touches real user data.
	home := t.TempDir()
	dataHome := filepath.Join(home, "data")
	seedChildState(t, dataHome, "科技")

	cmd := exec.Command(binPath, "browse")
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_CACHE_HOME="+filepath.Join(home, "cache"),
		"XDG_DATA_HOME="+dataHome,
		"XDG_STATE_HOME="+filepath.Join(home, "state"),
		"NEWSREADER_FEED_URL="+srv.URL,
	)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		t.Fatalf("failed to start pty: %v", err)
	}
	defer func() {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
	}()

	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: 160, Rows: 50}); err != nil {
		t.Fatalf("failed to set pty size: %v", err)
	}

	var outputBuf bytes.Buffer
	console, err := expect.NewConsole(
		expect.WithStdin(ptmx),
		expect.WithStdout(&outputBuf),
		expect.WithDefaultTimeout(10*time.Second),
	)
	if err != nil {
		t.Fatalf("failed to create console: %v", err)
	}
	defer console.Close()

	// Startup auto-selects the saved category and lists page one.
	if _, err := console.ExpectString("科技要闻第1期"); err != nil {
		t.Fatalf("first page not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// Page two appends.
	if _, err := console.Send("m\n"); err != nil {
		t.Fatalf("failed to send m: %v", err)
	}
	if _, err := console.ExpectString("科技要闻第11期"); err != nil {
		t.Fatalf("second page not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	// Kill the feed; a refresh must fall back to the cached copy.
	stub.SetFailing(true)
	if _, err := console.Send("r\n"); err != nil {
		t.Fatalf("failed to send r: %v", err)
	}
	if _, err := console.ExpectString("[offline copy]"); err != nil {
		t.Fatalf("offline copy not shown: %v\nScreen:\n%s", err, outputBuf.String())
	}

	if _, err := console.Send("q\n"); err != nil {
		t.Fatalf("failed to send q: %v", err)
	}

	done := make(chan error)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Error("process did not exit after 'q'")
	}
}

func TestE2E_SearchCommand(t *testing.T) {
	binPath := buildNewsreader(t)

	stub := stubfeed.New([]news.Article{{
		ID: "q1", Title: "量子计算新进展", Content: "正文", Category: "科技",
		Publisher: "新华社", PublishedAt: "2025-06-20 09:00:00",
	}})
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	home := t.TempDir()
	env := append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, "config"),
		"XDG_CACHE_HOME="+filepath.Join(home, "cache"),
		"XDG_DATA_HOME="+filepath.Join(home, "data"),
		"XDG_STATE_HOME="+filepath.Join(home, "state"),
		"NEWSREADER_FEED_URL="+srv.URL,
	)

	cmd := exec.Command(binPath, "search", "量子")
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("search failed: %v\n%s", err, out)
	}
	if !bytes.Contains(out, []byte("量子计算新进展")) {
		t.Fatalf("result missing from output:\n%s", out)
	}

	// Searching a dead feed is an error, never a cached answer.
	stub.SetFailing(true)
	cmd = exec.Command(binPath, "search", "量子")
	cmd.Env = env
	out, err = cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("search against dead feed should fail, output:\n%s", out)
	}
}
