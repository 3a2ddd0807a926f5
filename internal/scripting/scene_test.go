package scripting

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/starsandbox/server/internal/data"
)

func newTestEngine(t *testing.T, files map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestApplySceneWithoutHook(t *testing.T) {
	e := newTestEngine(t, map[string]string{"notes.txt": "ignored"})
	if e.Count() != 0 {
		t.Fatalf("Count = %d, want 0", e.Count())
	}
	in := data.DefaultScene()
	out, err := e.ApplyScene(in)
	if err != nil {
		t.Fatalf("ApplyScene: %v", err)
	}
	if out.Count() != in.Count() || out.Star != in.Star {
		t.Fatalf("scene changed without a hook: %+v", out)
	}
}

func TestApplySceneHookRewritesPlatforms(t *testing.T) {
	e := newTestEngine(t, map[string]string{"layout.lua": `
function build_scene(scene)
  table.insert(scene.platforms, {x = 100, y = 50, w = 80, h = 16, scale = 1})
  scene.star.y = scene.star.y - 50
  scene.platform_friction = 0.5
  return scene
end
`})
	out, err := e.ApplyScene(data.DefaultScene())
	if err != nil {
		t.Fatalf("ApplyScene: %v", err)
	}
	if out.Count() != 5 {
		t.Fatalf("platforms = %d, want 5", out.Count())
	}
	if got := out.Platforms[4]; got != (data.PlatformInfo{X: 100, Y: 50, W: 80, H: 16, Scale: 1}) {
		t.Fatalf("new platform = %+v", got)
	}
	if out.Star.Y != 50 || out.PlatformFriction != 0.5 {
		t.Fatalf("star.y = %v friction = %v", out.Star.Y, out.PlatformFriction)
	}
	if !out.Star.FixedRotation || out.Star.Restitution != 1 {
		t.Fatalf("untouched star fields lost: %+v", out.Star)
	}
}

func TestApplySceneRejectsBadResult(t *testing.T) {
	e := newTestEngine(t, map[string]string{"bad.lua": `
function build_scene(scene)
  scene.platforms = { {x = 0, y = 0, w = -1, h = 1} }
  return scene
end
`})
	if _, err := e.ApplyScene(data.DefaultScene()); !errors.Is(err, data.ErrInvalidScene) {
		t.Fatalf("err = %v, want ErrInvalidScene", err)
	}
}

func TestApplySceneNonTableResult(t *testing.T) {
	e := newTestEngine(t, map[string]string{"nil.lua": "function build_scene(scene) return 42 end"})
	if _, err := e.ApplyScene(data.DefaultScene()); err == nil {
		t.Fatal("expected error for non-table result")
	}
}

func TestNewEngineSyntaxError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(dir, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected load error")
	}
}

func TestNewEngineMissingDir(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Close()
}
