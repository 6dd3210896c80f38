package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/export"
	"github.com/garyellow/lnmu-portal/internal/portal"
)

const shellHelp = `Commands:
  search <query>     free-text search (starts at page 1)
  years              list enrollment years
  year <year>        choose a year and list its colleges
  college <name>     choose a college and list its courses
  course <name>      choose a course and list its students
  tab direct|guided  switch mode (clears everything)
  next | prev        move one page
  page <n>           jump to a page
  view <roll>        open a profile
  close              close the profile
  export [jpg|pdf]   export the open profile
  state              print the session as JSON
  help               show this text
  quit               leave the shell`

// shell drives one session from line-oriented input.
type shell struct {
	*cli
	session *portal.Session
}

func (sh *shell) loadingChanged(visible bool) {
	if visible {
		_, _ = fmt.Fprintln(sh.errOut, "Loading...")
	}
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	_, _ = fmt.Fprintln(sh.out, `LNMU student portal. Type "help" for commands.`)
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(sh.out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(sh.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := sh.dispatch(ctx, strings.ToLower(name), arg); err != nil {
			if domerrors.IsStale(err) {
				continue
			}
			_, _ = fmt.Fprintln(sh.out, "Error:", describe(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (sh *shell) dispatch(ctx context.Context, name, arg string) error {
	s := sh.session
	switch name {
	case "help", "?":
		_, err := fmt.Fprintln(sh.out, shellHelp)
		return err
	case "search":
		return sh.showPage(s.Search(ctx, arg))
	case "years":
		years, err := s.LoadYears(ctx)
		if err = absorb(err); err != nil {
			return err
		}
		return sh.printList(years)
	case "year":
		colleges, err := s.SetYear(ctx, arg)
		if err = absorb(err); err != nil {
			return err
		}
		return sh.printList(colleges)
	case "college":
		courses, err := s.SetCollege(ctx, arg)
		if err = absorb(err); err != nil {
			return err
		}
		return sh.printList(courses)
	case "course":
		return sh.showPage(s.SetCourse(ctx, arg))
	case "tab":
		tab, err := portal.ParseTab(arg)
		if err != nil {
			return err
		}
		s.SwitchTab(tab)
		_, err = fmt.Fprintf(sh.out, "Switched to %s search.\n", tab)
		return err
	case "next":
		return sh.showPage(s.NextPage(ctx))
	case "prev":
		return sh.showPage(s.PrevPage(ctx))
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return domerrors.NewValidationError("page", "page must be a number")
		}
		return sh.showPage(s.GotoPage(ctx, n))
	case "view":
		p, err := s.ViewProfile(ctx, arg)
		if err = absorb(err); err != nil {
			return err
		}
		return sh.printProfile(p)
	case "close":
		s.CloseProfile()
		return nil
	case "export":
		if arg == "" {
			arg = string(export.FormatPDF)
		}
		format, err := export.ParseFormat(arg)
		if err != nil {
			return err
		}
		path, err := s.Export(ctx, "", format)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(sh.out, "Saved", path)
		return err
	case "state":
		return sh.printJSON(s.Snapshot())
	default:
		return domerrors.NewValidationError("command", fmt.Sprintf("unknown command %q", name))
	}
}

func (sh *shell) showPage(page portal.ResultPage, err error) error {
	if err = absorb(err); err != nil {
		return err
	}
	return sh.printPage(page)
}
