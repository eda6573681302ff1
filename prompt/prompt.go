// Package prompt stores keyed prompt templates. Templates are opaque to the
// core: callers look them up by name and render {var} placeholders.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed prompts/*.txt
var defaults embed.FS

// Pack is one system/user prompt pair.
type Pack struct {
	System string
	User   string
}

// Render substitutes {key} placeholders in both halves.
func (p Pack) Render(vars map[string]string) Pack {
	if len(vars) == 0 {
		return p
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	return Pack{System: r.Replace(p.System), User: r.Replace(p.User)}
}

// Loader loads prompt packs by name. Convention:
//
//	<dir>/<name>.system.txt
//	<dir>/<name>.user.txt
//
// Names missing from the directory (or when dir is empty) fall back to the
// embedded defaults.
type Loader struct {
	dir string

	mu    sync.Mutex
	cache map[string]Pack
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: map[string]Pack{}}
}

// Load returns the pack for a template name.
func (l *Loader) Load(name string) (Pack, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.cache[name]; ok {
		return p, nil
	}

	p, err := l.read(name)
	if err != nil {
		return Pack{}, err
	}
	l.cache[name] = p
	return p, nil
}

func (l *Loader) read(name string) (Pack, error) {
	if l.dir != "" {
		system, errS := os.ReadFile(filepath.Join(l.dir, name+".system.txt"))
		user, errU := os.ReadFile(filepath.Join(l.dir, name+".user.txt"))
		if errS == nil && errU == nil {
			return Pack{System: string(system), User: string(user)}, nil
		}
	}

	system, errS := defaults.ReadFile("prompts/" + name + ".system.txt")
	user, errU := defaults.ReadFile("prompts/" + name + ".user.txt")
	if errS != nil || errU != nil {
		return Pack{}, fmt.Errorf("missing prompt files for %q", name)
	}
	return Pack{System: string(system), User: string(user)}, nil
}

// MustLoad is Load for static template names known at wiring time.
func (l *Loader) MustLoad(name string) Pack {
	p, err := l.Load(name)
	if err != nil {
		panic(err)
	}
	return p
}
