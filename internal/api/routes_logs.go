package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// mountLogRoutes wires /logs/paths, /logs/master, /logs/session,
// /logs/modules/{name}, and /logs/tail/{path}; there is no /logs/events
// route. Every handler that takes a path resolves it
// against a fixed root and rejects any resolution that escapes it,
// since these endpoints read arbitrary files named by the caller.
func mountLogRoutes(r chi.Router, ctl *Controller) {
	r.Get("/logs/paths", ctl.wrap(handleLogPaths))
	r.Get("/logs/master", ctl.wrap(handleMasterLog))
	r.Get("/logs/session", ctl.wrap(handleSessionLog))
	r.Get("/logs/modules/{name}", ctl.wrap(handleModuleLog))
	r.Get("/logs/tail/{path}", ctl.wrap(handleTailLog))
}

func handleLogPaths(c *Controller, w http.ResponseWriter, r *http.Request) error {
	out := map[string]interface{}{"master_log_dir": c.cfg.LogDir}
	modules := make(map[string]string)
	for _, inst := range c.orch.Instances() {
		if dir, ok := c.orch.ModuleLogDir(inst.Name); ok {
			modules[inst.Name] = dir
		}
	}
	out["module_log_dirs"] = modules
	c.WriteJSON(w, http.StatusOK, out)
	return nil
}

func handleMasterLog(c *Controller, w http.ResponseWriter, r *http.Request) error {
	return tailFile(w, filepath.Join(c.cfg.LogDir, "orchestrator.log"), defaultTailLines)
}

func handleSessionLog(c *Controller, w http.ResponseWriter, r *http.Request) error {
	_, dir := c.orch.SessionActive()
	if dir == "" {
		return ErrNotFound("NO_SESSION_LOG", "no active session")
	}
	return tailFile(w, filepath.Join(dir, "session.log"), defaultTailLines)
}

func handleModuleLog(c *Controller, w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	dir, ok := c.orch.ModuleLogDir(name)
	if !ok {
		return ErrNotFound("MODULE_NOT_FOUND", "module not found: "+name)
	}
	return tailFile(w, filepath.Join(dir, name+".log"), defaultTailLines)
}

// handleTailLog serves an arbitrary log path under the master log
// directory. The path parameter is resolved relative to LogDir and
// rejected if the cleaned result isn't still inside it, so a caller
// can't use ".." to read files outside the log tree.
func handleTailLog(c *Controller, w http.ResponseWriter, r *http.Request) error {
	rel := chi.URLParam(r, "path")
	root := filepath.Clean(c.cfg.LogDir)
	target := filepath.Join(root, rel)
	if !withinRoot(root, target) {
		return ErrValidation("path escapes the log directory")
	}
	lines := defaultTailLines
	if q := r.URL.Query().Get("lines"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			lines = n
		}
	}
	return tailFile(w, target, lines)
}

func withinRoot(root, target string) bool {
	target = filepath.Clean(target)
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(os.PathSeparator))
}

const defaultTailLines = 500

func tailFile(w http.ResponseWriter, path string, maxLines int) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound("LOG_NOT_FOUND", "log file not found: "+filepath.Base(path))
		}
		return ErrInternal(err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ErrInternal(err.Error())
	}
	lines := splitLines(string(data))
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, line := range lines {
		_, _ = w.Write([]byte(line))
		_, _ = w.Write([]byte("\n"))
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
