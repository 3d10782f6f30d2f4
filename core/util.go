package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims surrounding whitespace from s; pass lower to also fold
// it to lower case.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}

// Getwd returns the module root (the nearest parent holding a go.mod) so
// file lookups keep working under go-test, which runs each package from its
// own directory.
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir || parent == string(os.PathSeparator) {
			return wd
		}
	}
}
