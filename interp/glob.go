// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"wsh/pattern"
)

// matchPattern reports whether str matches the shell glob/extglob pat
// (case patterns, "[[ = ]]"/"[[ == ]]"), via the kept pattern package's
// glob-to-regexp translator rather than a second hand-rolled matcher —
// the same package expand/param.go already uses for "${v%pat}"-style
// trimming, so case arms and [[ ]] string comparisons share one glob
// dialect across the whole module.
func matchPattern(pat, str string) bool {
	restr, err := pattern.Regexp(pat, pattern.EntireString)
	if err != nil {
		return pat == str
	}
	re, err := regexp.Compile(restr)
	if err != nil {
		return pat == str
	}
	return re.MatchString(str)
}

// glob expands one pathname pattern against the filesystem, honoring
// dotglob-off-by-default (leading "." only matches an explicit leading
// "."), the expand.Config.Glob hook interp.go wires into fillExpandConfig.
// Grounded on the teacher's gocmd.go/match.go role (a glob hook supplied
// to the expansion layer), reimplemented here against the pattern
// package instead of path/filepath.Glob so bracket classes and extglob
// operators behave identically to case-statement matching.
func (r *Runner) glob(pat string) ([]string, error) {
	dir, file := filepath.Split(pat)
	if dir == "" {
		dir = "."
	}
	if strings.ContainsAny(dir, "*?[") {
		// a wildcard earlier in the path isn't supported by this
		// simplified single-level globber; fall back to filepath.Glob.
		return filepath.Glob(pat)
	}
	restr, err := pattern.Regexp(file, pattern.EntireString|pattern.Filenames)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(restr)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(file, ".") && strings.HasPrefix(name, ".") {
			continue
		}
		if re.MatchString(name) {
			if dir == "." && !strings.HasPrefix(pat, "./") {
				out = append(out, name)
			} else {
				out = append(out, filepath.Join(dir, name))
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
