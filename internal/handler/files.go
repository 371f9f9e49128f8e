package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/storage"
)

// FileHandler serves uploads kept on local disk.  Logos are public and
// mounted statically by the router; resumes go through Resume.
type FileHandler struct {
	Apps      *service.ApplicationService
	Dir       string
	URLPrefix string
}

// Resume streams a stored resume to its student, to a company that
// received it with an application, or to an admin.
func (h *FileHandler) Resume(c echo.Context) error {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}

	ctx, cancel := opContext(c)
	defer cancel()

	stored := path.Join(h.URLPrefix, storage.Resume.Folder, name)
	if err := h.Apps.CanViewResume(ctx, actor(c), stored); err != nil {
		return fail(c, err, "load resume failed")
	}

	f, err := os.Open(filepath.Join(h.Dir, storage.Resume.Folder, name))
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return fail(c, err, "load resume failed")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fail(c, err, "load resume failed")
	}
	c.Response().Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(c.Response(), c.Request(), name, info.ModTime(), f)
	return nil
}
