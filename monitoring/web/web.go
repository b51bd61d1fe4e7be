// Package web holds the progress page served by the eviction set monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// DevModeEnv names the variable that switches the monitor to the page files
// of the source tree, so the page can be edited without rebuilding.
const DevModeEnv = "EVSET_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// GetAssets returns the files of the progress page.
func GetAssets() http.FileSystem {
	if devMode() {
		dir := sourceDistDir()
		fmt.Fprintf(os.Stderr, "Serving the monitor page from %s\n", dir)

		return http.Dir(dir)
	}

	page, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(page)
}

func sourceDistDir() string {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot locate the monitor page sources")
	}

	return filepath.Join(filepath.Dir(self), "dist")
}

func devMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	return err == nil && on
}
