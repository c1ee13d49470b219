// Package workspace finds the host projects around DTO files: their
// classpath, their source roots, their subprojects, and the type
// environment built over them.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

var projectMarkers = []string{"build.gradle.kts", "build.gradle", "pom.xml", ".git"}

// maxSubprojectDepth bounds FindSubprojects below the root.
const maxSubprojectDepth = 4

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsProject reports whether dir carries a build file or a .git entry.
func IsProject(dir string) bool {
	for _, m := range projectMarkers {
		if exists(filepath.Join(dir, m)) {
			return true
		}
	}
	return false
}

func IsGradleProject(dir string) bool {
	return exists(filepath.Join(dir, "build.gradle.kts")) || exists(filepath.Join(dir, "build.gradle"))
}

func IsMavenProject(dir string) bool {
	return exists(filepath.Join(dir, "pom.xml"))
}

// FindProjectDir walks up from the directory of file. It returns the nearest
// project, or the outermost one when root is set.
func FindProjectDir(file string, root bool) (string, bool, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve %q: %w", file, err)
	}
	found := ""
	for dir := filepath.Dir(abs); ; {
		if IsProject(dir) {
			if !root {
				return dir, true, nil
			}
			found = dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return found, found != "", nil
}

// FindSubprojects lists project directories below root, depth first in name
// order, descending at most maxSubprojectDepth levels.
func FindSubprojects(root string) ([]string, error) {
	var out []string
	err := findSubprojects(root, 0, &out)
	return out, err
}

func findSubprojects(dir string, level int, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if !IsProject(sub) {
			continue
		}
		*out = append(*out, sub)
		if level < maxSubprojectDepth {
			if err := findSubprojects(sub, level+1, out); err != nil {
				return err
			}
		}
	}
	return nil
}

var (
	sourceSets = []string{"main", "test"}
	languages  = []string{"java", "kotlin"}
)

// SourceRoots lists the existing src/{main,test}/{java,kotlin} directories.
func SourceRoots(project string) []string {
	var out []string
	for _, set := range sourceSets {
		for _, lang := range languages {
			dir := filepath.Join(project, "src", set, lang)
			if exists(dir) {
				out = append(out, dir)
			}
		}
	}
	return out
}

// DtoRoots lists the existing src/{main,test}/dto directories.
func DtoRoots(project string) []string {
	var out []string
	for _, set := range sourceSets {
		dir := filepath.Join(project, "src", set, "dto")
		if exists(dir) {
			out = append(out, dir)
		}
	}
	return out
}

// DtoFiles lists every .dto file under the DTO roots of project and of its
// subprojects.
func DtoFiles(project string) ([]string, error) {
	projects := []string{project}
	subs, err := FindSubprojects(project)
	if err != nil {
		return nil, err
	}
	projects = append(projects, subs...)
	var out []string
	for _, p := range projects {
		for _, root := range DtoRoots(p) {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if !d.IsDir() && filepath.Ext(path) == ".dto" {
					out = append(out, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
