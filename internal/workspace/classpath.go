package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// ClasspathDirs are the output directories Gradle, Maven and the Android
// plugin write classes to, relative to a project.
var ClasspathDirs = []string{
	"build/classes/kotlin/main",
	"build/classes/kotlin/test",
	"build/classes/java/main",
	"build/classes/java/test",
	"target/classes",
	"build/tmp/kotlin-classes/debug",
	"build/intermediates/javac/debug/classes",
	"build/intermediates/javac/debug/compileDebugJavaWithJavac/classes",
}

var skipClasspathSearch = map[string]bool{"node_modules": true, "src": true}

// FindClasspath returns the class output directories of project. When none of
// the known locations exist it searches the tree for directories whose path
// ends like one of them.
func FindClasspath(project string) []string {
	var out []string
	for _, rel := range ClasspathDirs {
		dir := filepath.Join(project, filepath.FromSlash(rel))
		if exists(dir) {
			out = append(out, dir)
		}
	}
	if len(out) == 0 {
		searchClasspath(project, &out)
	}
	return out
}

func searchClasspath(dir string, out *[]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || skipClasspathSearch[name] {
			continue
		}
		sub := filepath.Join(dir, name)
		if isClasspathDir(sub) {
			*out = append(*out, sub)
			continue
		}
		searchClasspath(sub, out)
	}
}

// isClasspathDir reports whether dir ends with one of ClasspathDirs.
func isClasspathDir(dir string) bool {
	slashed := filepath.ToSlash(dir)
	for _, rel := range ClasspathDirs {
		if strings.HasSuffix(slashed, "/"+rel) {
			return true
		}
	}
	return false
}
