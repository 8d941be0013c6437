package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/textsummarizer/plugin/export"
	"github.com/hrygo/textsummarizer/plugin/platform"
	"github.com/hrygo/textsummarizer/session"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run an interactive summary session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		summarizer, extractor, err := newBackend(cmd.Context(), p, viper.GetBool("direct"))
		if err != nil {
			return err
		}

		m, err := startSessionMetrics(cmd.Context(), p.MetricsAddr)
		if err != nil {
			return err
		}
		defer m.Close()

		sh := newShell(cmd.OutOrStdout(), platform.SystemClipboard{}, platform.FileDownload{Dir: p.ExportDir})
		sh.attach(session.NewStore(summarizer, extractor, session.WithObserver(sh.onEvent), m.option()))
		return sh.run(cmd.Context(), cmd.InOrStdin())
	},
}

const shellHelp = `commands:
  text <words>               stage text, replacing what is staged
  append <words>             add a line to the staged text
  file <path>                stage the text of a txt, pdf or docx file
  clear                      drop the staged text
  submit                     summarize the staged text
  list [filter]              list records, optionally filtered (status == "done")
  show <id> [original|summary]
  reload <id>                summarize a finished record again
  delete <id>
  copy <id> [original|summary]
  export <id> [original|summary] [txt|md|html] [-]
  export all [-]             write an Atom feed of finished summaries
                             a trailing - prints the export instead of saving it
  wait                       block until every request has finished
  quit`

// shell is a line-oriented front end over one session.Store.
type shell struct {
	mu  sync.Mutex // guards out; events arrive from request goroutines
	out io.Writer

	store     *session.Store
	clipboard session.Clipboard
	exporter  session.Exporter
	share     session.Exporter
	now       func() time.Time
}

func newShell(out io.Writer, cb session.Clipboard, exp session.Exporter) *shell {
	sh := &shell{out: out, clipboard: cb, exporter: exp, now: time.Now}
	sh.share = platform.WriterShare{W: sh}
	return sh
}

// Write serializes shared exports with event output.
func (sh *shell) Write(p []byte) (int, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.out.Write(p)
}

func (sh *shell) attach(store *session.Store) {
	sh.store = store
}

func (sh *shell) printf(format string, args ...any) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) onEvent(ev session.Event) {
	if ev.Kind != session.EventUpdated || ev.Record.Status == session.StatusPending {
		return
	}
	sh.printf("[%s] %s: %s\n", ev.Record.ID, ev.Record.Status, ev.Record.Title)
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), platform.MaxFileSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done := sh.exec(ctx, line); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// exec runs one command line and reports whether the session should end.
func (sh *shell) exec(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	var err error
	switch strings.ToLower(name) {
	case "quit", "exit":
		return true
	case "help", "?":
		sh.printf("%s\n", shellHelp)
	case "text":
		sh.store.Stage(rest)
	case "append":
		staged := sh.store.Staged().Text
		if staged != "" {
			staged += "\n"
		}
		sh.store.Stage(staged + rest)
	case "file":
		err = sh.file(ctx, rest)
	case "clear":
		sh.store.ClearStaging()
	case "submit":
		if id, ok := sh.store.SubmitStaged(ctx); ok {
			sh.printf("[%s] pending\n", id)
		} else {
			sh.printf("nothing to submit\n")
		}
	case "list", "ls":
		err = sh.list(rest)
	case "show":
		err = sh.show(args)
	case "reload":
		err = sh.reload(ctx, args)
	case "delete", "rm":
		err = sh.delete(args)
	case "copy":
		err = sh.copy(args)
	case "export":
		err = sh.export(ctx, args)
	case "wait":
		err = sh.store.Wait(ctx)
	default:
		err = errors.Errorf("unknown command %q, type help", name)
	}
	if err != nil {
		sh.printf("error: %s\n", userMessage(err))
	}
	return false
}

func (sh *shell) file(ctx context.Context, path string) error {
	text, err := sh.store.PickFile(ctx, platform.PathPicker{Path: path})
	if errors.Is(err, session.ErrPickCanceled) {
		return errors.New("usage: file <path>")
	}
	if err != nil {
		return err
	}
	sh.printf("staged %d characters from %s\n", len([]rune(text)), sh.store.Staged().FileName)
	return nil
}

func (sh *shell) list(expr string) error {
	filter, err := session.CompileFilter(expr)
	if err != nil {
		return err
	}
	records, err := sh.store.List(filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		sh.printf("no records\n")
		return nil
	}
	for _, rec := range records {
		sh.printf("%s  %-7s  %s\n", rec.ID, rec.Status, rec.Title)
	}
	return nil
}

func (sh *shell) show(args []string) error {
	rec, field, err := sh.target(args, session.FieldSummary)
	if err != nil {
		return err
	}
	if len(args) < 2 {
		sh.printf("%s\nstatus: %s\n\n%s\n", rec.Title, rec.Status, rec.OriginalText)
		if rec.Status == session.StatusDone {
			sh.printf("\nsummary:\n%s\n", rec.SummaryText)
		} else if rec.Status == session.StatusError {
			sh.printf("\n%s\n", rec.Message)
		}
		return nil
	}
	text, err := sh.store.Text(rec.ID, field)
	if err != nil {
		return err
	}
	sh.printf("%s\n", text)
	return nil
}

func (sh *shell) reload(ctx context.Context, args []string) error {
	rec, _, err := sh.target(args, "")
	if err != nil {
		return err
	}
	return sh.reloadRecord(ctx, rec.ID)
}

// reloadRecord tells a Pending record apart from one deleted since it was
// resolved; Reload refuses both.
func (sh *shell) reloadRecord(ctx context.Context, id string) error {
	if !sh.store.Reload(ctx, id) {
		if _, ok := sh.store.Get(id); !ok {
			return errors.Wrap(session.ErrNotFound, id)
		}
		return errors.Errorf("%s is still pending", id)
	}
	sh.printf("[%s] pending\n", id)
	return nil
}

func (sh *shell) delete(args []string) error {
	rec, _, err := sh.target(args, "")
	if err != nil {
		return err
	}
	sh.store.Delete(rec.ID)
	sh.printf("[%s] deleted\n", rec.ID)
	return nil
}

func (sh *shell) copy(args []string) error {
	rec, field, err := sh.target(args, session.FieldSummary)
	if err != nil {
		return err
	}
	if err := sh.store.Copy(rec.ID, field, sh.clipboard); err != nil {
		return err
	}
	sh.printf("copied %s of %s\n", field, rec.ID)
	return nil
}

func (sh *shell) export(ctx context.Context, args []string) error {
	exp, shared := sh.exporter, false
	if n := len(args); n > 1 && args[n-1] == "-" {
		exp, shared = sh.share, true
		args = args[:n-1]
	}
	done := func(loc string) {
		if !shared {
			sh.printf("exported %s\n", loc)
		}
	}

	if len(args) == 1 && args[0] == "all" {
		loc, err := export.Session(ctx, exp, sh.store.Records(), sh.now())
		if err != nil {
			return err
		}
		done(loc)
		return nil
	}

	rec, field, err := sh.target(args, session.FieldSummary)
	if err != nil {
		return err
	}
	format := export.FormatTXT
	if len(args) > 2 {
		format = args[2]
	}
	loc, err := export.Record(ctx, exp, rec, field, format)
	if err != nil {
		return err
	}
	done(loc)
	return nil
}

// target resolves args[0] as a record id or unique id prefix and args[1]
// as an optional field.
func (sh *shell) target(args []string, defaultField session.Field) (session.Record, session.Field, error) {
	if len(args) == 0 {
		return session.Record{}, "", errors.New("missing record id")
	}
	rec, err := sh.resolve(args[0])
	if err != nil {
		return session.Record{}, "", err
	}
	field := defaultField
	if len(args) > 1 {
		if field, err = session.ParseField(args[1]); err != nil {
			return session.Record{}, "", err
		}
	}
	return rec, field, nil
}

func (sh *shell) resolve(prefix string) (session.Record, error) {
	if rec, ok := sh.store.Get(prefix); ok {
		return rec, nil
	}
	var matches []session.Record
	for _, rec := range sh.store.Records() {
		if strings.HasPrefix(rec.ID, prefix) {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return session.Record{}, errors.Wrap(session.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	}
	return session.Record{}, errors.Errorf("id prefix %q is ambiguous", prefix)
}

// userMessage hides transport details behind the generic notices records
// and extraction failures carry.
func userMessage(err error) string {
	if errors.Is(err, session.ErrExtractionFailed) {
		return session.ErrExtractionFailed.Error()
	}
	return err.Error()
}
