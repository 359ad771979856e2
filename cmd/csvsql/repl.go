package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/nao1215/csvsql"
)

const prompt = "csvsql> "

var (
	errNoResult      = errors.New("no query result to navigate")
	errQueryRunning  = errors.New("a query is already running")
	errExportRunning = errors.New("an export is already running")
	errNoEarlier     = errors.New("no earlier statement")
	errNoLater       = errors.New("no later statement")
)

const helpText = `Commands:
  :tables           list tables
  :info <table>     show the columns of a table
  :next, :prev      show the next or previous page
  :home, :end       show the first or last row
  :down, :up        move the cursor one row
  :pgdn, :pgup      move the cursor one scroll step
  :save <file>      write the current result to a file
  :history          list submitted statements
  :history <n>      run statement n again
  :back, :forward   run the previous or next statement in the history
  :quit             exit
Any other input is executed as SQL.
`

// repl is the interactive line mode. It submits work to a session and waits
// for the matching completion event before reading the next line.
type repl struct {
	db         *sql.DB
	session    *csvsql.Session
	history    *csvsql.InputHistory
	view       *csvsql.Viewport
	rawID      string
	exportOpts csvsql.ExportOptions

	in       *bufio.Scanner
	out      io.Writer
	errColor *color.Color
}

func newREPL(db *sql.DB, session *csvsql.Session, rawID string, opts csvsql.ExportOptions, in io.Reader, out io.Writer) *repl {
	return &repl{
		db:         db,
		session:    session,
		history:    csvsql.NewInputHistory(),
		rawID:      rawID,
		exportOpts: opts,
		in:         bufio.NewScanner(in),
		out:        out,
		errColor:   color.New(color.FgRed, color.Bold),
	}
}

// Run reads lines until :quit or the end of input.
func (r *repl) Run(ctx context.Context) error {
	if err := r.listTables(ctx); err != nil {
		return err
	}
	for {
		fmt.Fprint(r.out, prompt)
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			_, _ = r.errColor.Fprintf(r.out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		return false, r.query(ctx, line, true)
	}

	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":help", ":h":
		fmt.Fprint(r.out, helpText)
		return false, nil
	case ":tables":
		return false, r.listTables(ctx)
	case ":info":
		return false, r.tableInfo(ctx, arg)
	case ":history":
		if arg != "" {
			return false, r.rerun(ctx, arg)
		}
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.out, "%4d  %s\n", i+1, entry)
		}
		return false, nil
	case ":back", ":forward":
		return false, r.recall(ctx, fields[0])
	case ":save":
		return false, r.save(ctx, arg)
	case ":next", ":prev", ":home", ":end":
		return false, r.page(fields[0])
	case ":down", ":up", ":pgdn", ":pgup":
		return false, r.move(fields[0])
	default:
		return false, fmt.Errorf("unknown command %s, type :help for a list", fields[0])
	}
}

// query runs sqlText and shows its first page. Statements recalled with
// :back or :forward leave the history cursor where it is.
func (r *repl) query(ctx context.Context, sqlText string, resetCursor bool) error {
	if !r.history.Contains(sqlText) {
		r.history.Push(sqlText)
	}
	if resetCursor {
		r.history.ResetCursor()
	}

	jobID, ok := r.session.SubmitQuery(ctx, sqlText)
	if !ok {
		return errQueryRunning
	}
	ev, err := r.await(ctx, jobID)
	if err != nil {
		return err
	}
	if ev.Err != nil {
		return ev.Err
	}
	if !ev.HasPage {
		return errNoResult
	}
	r.show(ev.Page)
	return nil
}

func (r *repl) rerun(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > r.history.Len() {
		return fmt.Errorf("no history entry %s", arg)
	}
	sqlText := r.history.Entries()[n-1]
	fmt.Fprintf(r.out, "-> %s\n", sqlText)
	return r.query(ctx, sqlText, true)
}

func (r *repl) recall(ctx context.Context, command string) error {
	var (
		sqlText string
		ok      bool
	)
	if command == ":back" {
		if sqlText, ok = r.history.Back(); !ok {
			return errNoEarlier
		}
	} else if sqlText, ok = r.history.Forward(); !ok {
		return errNoLater
	}
	fmt.Fprintf(r.out, "-> %s\n", sqlText)
	return r.query(ctx, sqlText, false)
}

func (r *repl) save(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("usage: :save <file>")
	}
	jobID, ok := r.session.SubmitExport(ctx, csvsql.FileSink(path, r.exportOpts))
	if !ok {
		return errExportRunning
	}
	ev, err := r.await(ctx, jobID)
	if err != nil {
		return err
	}
	if ev.Err != nil {
		return ev.Err
	}
	fmt.Fprintf(r.out, "Saved the result to %s\n", path)
	return nil
}

// await returns the completion event of jobID.
func (r *repl) await(ctx context.Context, jobID string) (csvsql.Event, error) {
	for {
		select {
		case ev := <-r.session.Events():
			if ev.JobID == jobID {
				return ev, nil
			}
		case <-ctx.Done():
			return csvsql.Event{}, ctx.Err()
		}
	}
}

func (r *repl) page(command string) error {
	if r.view == nil {
		return errNoResult
	}
	current := r.view.Page()

	var (
		req csvsql.NavigationRequest
		ok  = true
	)
	switch command {
	case ":next":
		req, ok = csvsql.NextPageRequest(current)
	case ":prev":
		req, ok = csvsql.PrevPageRequest(current)
	case ":home":
		req = csvsql.HomeRequest()
	case ":end":
		req = csvsql.EndRequest(current)
	}
	if !ok {
		fmt.Fprintln(r.out, r.view.Info())
		return nil
	}
	return r.navigate(req)
}

func (r *repl) move(command string) error {
	if r.view == nil {
		return errNoResult
	}

	var (
		req   csvsql.NavigationRequest
		cross bool
	)
	switch command {
	case ":down":
		req, cross = r.view.Move(csvsql.DirectionDown)
	case ":up":
		req, cross = r.view.Move(csvsql.DirectionUp)
	case ":pgdn":
		req, cross = r.view.Scroll(csvsql.DirectionDown)
	case ":pgup":
		req, cross = r.view.Scroll(csvsql.DirectionUp)
	}
	if cross {
		return r.navigate(req)
	}
	fmt.Fprintln(r.out, r.view.Info())
	return nil
}

func (r *repl) navigate(req csvsql.NavigationRequest) error {
	page, ok := r.session.Page(req)
	if !ok {
		return errNoResult
	}
	r.show(page)
	return nil
}

// show renders page with the cursor row marked, followed by its info line.
func (r *repl) show(page csvsql.PagedResult) {
	r.view = csvsql.NewViewport(page, csvsql.DefaultScrollStep)

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(page.Header, "\t"))
	for i, row := range page.Rows {
		marker := ""
		if i == r.view.Cursor() {
			marker = ">"
		}
		fmt.Fprintln(tw, marker+"\t"+strings.Join(row, "\t"))
	}
	_ = tw.Flush()
	fmt.Fprintln(r.out, r.view.Info())
}

func (r *repl) listTables(ctx context.Context) error {
	tables, err := csvsql.ListTables(ctx, r.db)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Tables: %s\n", strings.Join(tables, ", "))
	return nil
}

func (r *repl) tableInfo(ctx context.Context, table string) error {
	if table == "" {
		return errors.New("usage: :info <table>")
	}
	columns, err := csvsql.TableInfo(ctx, r.db, table, r.rawID)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return fmt.Errorf("no such table: %s", table)
	}
	for _, c := range columns {
		fmt.Fprintln(r.out, c.String())
	}
	return nil
}
