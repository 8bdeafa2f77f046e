// Command dragbox is a terminal client for the Dragbox file service.
//
//	dragbox login --email me@example.com --password ...
//	dragbox upload ./report.pdf
//	dragbox ls
//	dragbox link report.pdf
//	dragbox rm report.pdf notes.txt
//
// The server address and session token come from --server/--token or the
// DRAGBOX_SERVER and DRAGBOX_TOKEN environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"dragbox/file-manager/internal/client"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usage = `usage: dragbox <command> [flags] [args]

commands:
  register   create an account
  login      sign in and print a session token
  ls         list your files, newest first
  upload     upload one file
  link       print the access URL of a file
  rm         delete files by name or key
`

type command func(ctx context.Context, v *viper.Viper, args []string) error

var commands = map[string]command{
	"register": runRegister,
	"login":    runLogin,
	"ls":       runList,
	"upload":   runUpload,
	"link":     runLink,
	"rm":       runRemove,
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v := viper.New()
	v.SetEnvPrefix("dragbox")
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:8080")

	if err := run(ctx, v, os.Args[2:]); err != nil {
		if errors.Is(err, client.ErrAuthRequired) {
			log.Fatal("ERROR: not signed in; run `dragbox login` and export DRAGBOX_TOKEN")
		}
		log.Fatalf("ERROR: %v", err)
	}
}

// parse binds the shared flags plus extra to v and parses args.
func parse(v *viper.Viper, name string, args []string, extra func(*pflag.FlagSet)) ([]string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("server", "", "file service base URL")
	fs.String("token", "", "session token")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func newClient(v *viper.Viper) *client.Client {
	return client.New(v.GetString("server"), v.GetString("token"), nil)
}

func newDashboard(v *viper.Viper, out io.Writer) *client.Dashboard {
	c := newClient(v)
	return client.NewDashboard(c, client.NewUploader(c, nil), writerClipboard{out})
}

func credentials(fs *pflag.FlagSet) {
	fs.String("email", "", "account email")
	fs.String("password", "", "account password (or DRAGBOX_PASSWORD)")
}

func runRegister(ctx context.Context, v *viper.Viper, args []string) error {
	if _, err := parse(v, "register", args, func(fs *pflag.FlagSet) {
		fs.String("name", "", "display name")
		credentials(fs)
	}); err != nil {
		return err
	}
	if err := newClient(v).Register(ctx, v.GetString("name"), v.GetString("email"), v.GetString("password")); err != nil {
		return err
	}
	fmt.Println("Account created. Sign in with `dragbox login`.")
	return nil
}

func runLogin(ctx context.Context, v *viper.Viper, args []string) error {
	if _, err := parse(v, "login", args, credentials); err != nil {
		return err
	}
	token, err := newClient(v).Login(ctx, v.GetString("email"), v.GetString("password"))
	if err != nil {
		return err
	}
	fmt.Printf("export DRAGBOX_TOKEN=%s\n", token)
	return nil
}

func runList(ctx context.Context, v *viper.Viper, args []string) error {
	if _, err := parse(v, "ls", args, nil); err != nil {
		return err
	}
	d := newDashboard(v, os.Stdout)
	if err := d.Mount(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
	for _, f := range d.Store().Snapshot().Files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.SizeLabel, f.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runUpload(ctx context.Context, v *viper.Viper, args []string) error {
	rest, err := parse(v, "upload", args, func(fs *pflag.FlagSet) {
		fs.String("type", "", "content type (guessed from the extension when empty)")
	})
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("upload takes exactly one file")
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	contentType := v.GetString("type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(f.Name()))
	}

	d := newDashboard(v, os.Stdout)
	last := -1
	d.Store().Subscribe(func(s client.State) {
		if s.Uploading && s.Progress != last {
			last = s.Progress
			fmt.Fprintf(os.Stderr, "\r%3d%%", s.Progress)
		}
	})

	err = d.Drop(ctx, []client.FileHandle{{
		Name:        filepath.Base(f.Name()),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	rec := d.Store().Snapshot().Files[0]
	fmt.Printf("%s (%s)\n%s\n", rec.Key, rec.SizeLabel, rec.URL)
	return nil
}

func runLink(ctx context.Context, v *viper.Viper, args []string) error {
	rest, err := parse(v, "link", args, nil)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errors.New("link takes exactly one file name")
	}

	d := newDashboard(v, os.Stdout)
	if err := d.Mount(ctx); err != nil {
		return err
	}
	idx := indexOf(d.Store().Snapshot(), rest[0])
	if len(idx) == 0 {
		return fmt.Errorf("no file named %q", rest[0])
	}
	return d.CopyLink(idx[0])
}

func runRemove(ctx context.Context, v *viper.Viper, args []string) error {
	rest, err := parse(v, "rm", args, nil)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New("rm needs at least one file name")
	}

	d := newDashboard(v, os.Stdout)
	if err := d.Mount(ctx); err != nil {
		return err
	}
	for _, name := range rest {
		idx := indexOf(d.Store().Snapshot(), name)
		if len(idx) == 0 {
			log.Printf("WARN: no file named %q", name)
		}
		for _, i := range idx {
			if !d.Store().Snapshot().Files[i].Selected {
				d.ToggleSelection(i)
			}
		}
	}

	n := len(d.Store().Snapshot().Selected())
	if err := d.DeleteSelected(ctx); err != nil {
		return err
	}
	fmt.Printf("%s (%d)\n", client.MsgDeleted, n)
	return nil
}

// indexOf returns the positions of records whose name or key is name.
func indexOf(s client.State, name string) []int {
	var out []int
	for i, f := range s.Files {
		if f.Name == name || f.Key == name {
			out = append(out, i)
		}
	}
	return out
}

// writerClipboard prints copied links.
type writerClipboard struct{ w io.Writer }

func (c writerClipboard) WriteText(text string) error {
	_, err := fmt.Fprintln(c.w, text)
	return err
}
