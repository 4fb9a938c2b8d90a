package main

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// pageRenderer serves the embedded templates, or the ones in dir when set.
// On-disk templates are reloaded when they change.
type pageRenderer struct {
	dir  string
	tmpl atomic.Pointer[template.Template]
}

func newPageRenderer(dir string) (*pageRenderer, error) {
	p := &pageRenderer{dir: dir}
	if err := p.load(); err != nil {
		return nil, err
	}
	if dir != "" {
		go func() {
			if err := p.watch(); err != nil {
				log.Printf("template watch stopped: %v", err)
			}
		}()
	}
	return p, nil
}

func (p *pageRenderer) load() error {
	base := template.New("pages")
	var (
		t   *template.Template
		err error
	)
	if p.dir == "" {
		t, err = base.ParseFS(templateFS, "templates/*.tmpl")
	} else {
		t, err = base.ParseGlob(filepath.Join(p.dir, "*.tmpl"))
	}
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	p.tmpl.Store(t)
	return nil
}

func (p *pageRenderer) render(c *gin.Context, code int, name string, data any) {
	c.Render(code, render.HTML{Template: p.tmpl.Load(), Name: name, Data: data})
}

// watch reloads templates after edits in dir settle.
func (p *pageRenderer) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.dir); err != nil {
		return err
	}
	log.Printf("Watching %s for template changes ...", p.dir)

	var pending time.Time
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".tmpl") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending = time.Now()
			}
		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < 300*time.Millisecond {
				continue
			}
			pending = time.Time{}
			if err := p.load(); err != nil {
				// keep serving the last good set
				log.Printf("template reload failed: %v", err)
				continue
			}
			log.Printf("templates reloaded from %s", p.dir)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}
