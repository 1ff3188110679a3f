package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/cn1tools/cn1update/internal/replace"
	"github.com/cn1tools/cn1update/internal/updater"
)

func printReport(w io.Writer, r *updater.Report) {
	if r.Checked {
		if len(r.Installed) == 0 && len(r.Failed) == 0 {
			fmt.Fprintln(w, statusSuccess("Toolchain is up to date"))
		}
		for _, o := range r.Installed {
			printOutcome(w, o)
		}
		for _, o := range r.Failed {
			fmt.Fprintln(w, statusError(fmt.Sprintf("%s: %v", o.Key, o.Err)))
		}
	}

	if r.SkinErr != nil {
		fmt.Fprintln(w, statusWarning(fmt.Sprintf("Skin catalog unavailable: %v", r.SkinErr)))
	}
	for _, o := range r.Skins {
		if o.Err != nil {
			fmt.Fprintln(w, statusError(fmt.Sprintf("skin %s: %v", o.Key, o.Err)))
			continue
		}
		printOutcome(w, o)
	}

	for _, p := range r.Projects {
		if len(p.Changed) == 0 && len(p.Missing) == 0 && len(p.Failed) == 0 {
			continue
		}
		fmt.Fprintln(w, bold(p.Project))
		for _, c := range p.Changed {
			msg := fmt.Sprintf("  %s %s", c.Key, dim(c.Version))
			if c.Result == replace.Deferred {
				fmt.Fprintln(w, statusDeferred(msg+" (pending swap)"))
			} else {
				fmt.Fprintln(w, statusSuccess(msg))
			}
		}
		for _, key := range p.Missing {
			fmt.Fprintln(w, statusWarning(fmt.Sprintf("  %s not in cache, skipped", key)))
		}
		for _, f := range p.Failed {
			fmt.Fprintln(w, statusError(fmt.Sprintf("  %s: %v", f.Key, f.Err)))
		}
	}

	dirs := make([]string, 0, len(r.ProjectErrs))
	for dir := range r.ProjectErrs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		fmt.Fprintln(w, statusError(r.ProjectErrs[dir].Error()))
	}

	if n := r.Deferred(); n > 0 {
		fmt.Fprintln(w, dim(fmt.Sprintf("%d file(s) are in use and will be replaced once released.", n)))
	}
}

func printOutcome(w io.Writer, o updater.Outcome) {
	msg := fmt.Sprintf("%s %s", o.Key, dim(o.Version))
	if o.Result == replace.Deferred {
		fmt.Fprintln(w, statusDeferred(msg+" (pending swap)"))
		return
	}
	fmt.Fprintln(w, statusSuccess(msg))
}
