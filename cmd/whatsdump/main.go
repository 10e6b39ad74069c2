// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command whatsdump saves chats and messages from WhatsApp through an MCP
// bridge server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/trace"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rusq/osenv/v2"
	"github.com/rusq/tracer"

	"github.com/rusq/whatsdump"
)

const (
	envAuthToken = "WHATSDUMP_AUTH_TOKEN"
	envEndpoint  = "WHATSDUMP_ENDPOINT"
	envPhone     = "WHATSDUMP_PHONE"

	bannerFmt = "Whatsdump %[1]s Copyright (c) 2021-%[2]s rusq (build: %[3]s)\n\n"
)

var (
	build     = "dev"
	buildYear = "2077"
	commit    = "placeholder"
)

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced Windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

// params is the command line parameters.
type params struct {
	cfg whatsdump.Config

	cfgFile string // configuration file, optional

	// operation modes
	auth         bool
	status       bool
	logout       bool
	listChats    bool
	info         bool
	search       string
	export       string
	watch        bool
	sampleConfig bool

	// mode options
	output        string // output file for listings, "-" is stdout
	format        string // report or export format
	base          string // base directory or zip file for dumps and exports
	dbFile        string // message archive file
	noFiles       bool   // do not write conversation files during dump
	media         bool   // include media in exports
	oldest        timeValue
	latest        timeValue
	watchInterval time.Duration

	jids []string // positional chat JIDs

	traceFile string // trace file
	logFile   string // log file, stderr when empty

	printVersion bool
	verbose      bool
}

func main() {
	banner(os.Stderr)
	loadSecrets(secrets)

	p, err := parseCmdLine(os.Args[1:])
	if err != nil {
		slog.Error("invalid parameters", "error", err)
		os.Exit(2)
	}
	if p.printVersion {
		fmt.Println(build)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, p); err != nil {
		slog.Error("whatsdump", "error", err)
		os.Exit(1)
	}
}

// run initialises logging and tracing and hands over to the application.
func run(ctx context.Context, p params) error {
	lg, logStopFn, err := initLog(p.logFile, p.verbose)
	if err != nil {
		return err
	}
	defer logStopFn()
	slog.SetDefault(lg)

	if traceStopFn, err := initTrace(lg, p.traceFile); err != nil {
		return err
	} else {
		defer traceStopFn()
	}

	ctx, task := trace.NewTask(ctx, "main.run")
	defer task.End()

	trace.Logf(ctx, "info", "params: %+v", p)

	return runApp(ctx, lg, p)
}

// initLog initialises the logging.  If the filename is not empty, the file
// will be opened and the log output directed to it.  The returned stop
// function must be called in a deferred call, it closes the log file if one
// is open.
func initLog(filename string, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if filename == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}, nil
	}

	lf, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create the log file: %w", err)
	}
	lg := slog.New(slog.NewTextHandler(lf, &slog.HandlerOptions{Level: level}))
	stopFn := func() {
		if err := lf.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close the log file: %s\n", err)
		}
	}
	return lg, stopFn, nil
}

// initTrace initialises the tracing.  If the filename is not empty, the
// execution trace is written to that file.  The returned stop function must
// be called in a deferred call.
func initTrace(lg *slog.Logger, filename string) (stop func(), err error) {
	if filename == "" {
		return func() {}, nil
	}

	lg.Info("trace will be written to the file", "filename", filename)

	trc := tracer.New(filename)
	if err := trc.Start(); err != nil {
		return nil, err
	}
	return func() {
		if err := trc.End(); err != nil {
			lg.Warn("failed to write the trace file", "error", err)
		}
	}, nil
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(
			flag.CommandLine.Output(),
			"Whatsdump saves chats and messages from WhatsApp through an MCP bridge.\n\n"+
				"This program comes with ABSOLUTELY NO WARRANTY;\n"+
				"This is free software, and you are welcome to redistribute it\n"+
				"under certain conditions.  Read LICENSE for more information.\n\n"+
				"Usage:  %s [flags] [JID1 JID2 ... JIDN]\n"+
				"\twhere: JID is the chat identifier, i.e. 15551230001@s.whatsapp.net\n"+
				"* NOTE: without flags and JIDs every chat is dumped\n\n"+
				"flags:\n",
			filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprint(flag.CommandLine.Output(), color.HiYellowString(`
---------------------------------------------------------------
On the first run, pair the bridge with your device:

	`+filepath.Base(os.Args[0])+` -auth

and scan the printed QR code with the WhatsApp app.
---------------------------------------------------------------
`),
		)
	}
}

// parseCmdLine parses the command line arguments.
func parseCmdLine(args []string) (params, error) {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.Usage = usage(fs)

	cfg, err := whatsdump.EnvConfig()
	if err != nil {
		return params{}, err
	}
	p := params{cfg: cfg}

	// bridge connection
	fs.StringVar(&p.cfgFile, "config", osenv.Value("WHATSDUMP_CONFIG", ""), "configuration `file` (environment: WHATSDUMP_CONFIG)")
	fs.StringVar(&p.cfg.Server.Endpoint, "server", p.cfg.Server.Endpoint, "bridge `endpoint` URL (environment: "+envEndpoint+")")
	fs.StringVar(&p.cfg.Server.AuthToken, "token", p.cfg.Server.AuthToken, "bearer `token` for the bridge (environment: "+envAuthToken+")")

	// operation modes
	fs.BoolVar(&p.auth, "auth", false, "pair with the device and exit.")
	fs.BoolVar(&p.status, "status", false, "print the bridge connection status and exit.")
	fs.BoolVar(&p.logout, "logout", false, "drop the device pairing and exit.")
	fs.BoolVar(&p.listChats, "c", false, "same as -list-chats")
	fs.BoolVar(&p.listChats, "list-chats", false, "list chats and their JIDs for the dump.")
	fs.BoolVar(&p.info, "info", false, "print the metadata of the chats given on the command line.")
	fs.StringVar(&p.search, "search", "", "search the message history for `query`.")
	fs.StringVar(&p.export, "export", "", "`name` of the export file, exports the single chat given on the\ncommand line through the bridge exporter.")
	fs.BoolVar(&p.watch, "watch", false, "poll the watched chats and print new messages as they arrive.")
	fs.BoolVar(&p.sampleConfig, "sample-config", false, "print a documented configuration file template and exit.")

	// mode options
	fs.StringVar(&p.output, "o", "-", "output `filename` for the listings.\nUse '-' for the Standard Output.")
	fs.StringVar(&p.format, "r", "text", "listing or export `format`.  One of 'json', 'text' or 'csv' (export only)")
	fs.StringVar(&p.base, "base", ".", "`directory` to write the conversation files to\n(add .zip extension to save to a ZIP file)")
	fs.StringVar(&p.dbFile, "db", "", "message archive `file`.  When set, messages are also stored in the\nSQLite archive, and repeated runs fetch only the new ones.")
	fs.BoolVar(&p.noFiles, "no-files", false, "do not write conversation files, use with -db.")
	fs.BoolVar(&p.media, "media", false, "include media attachments in the export.")
	fs.Var(&p.oldest, "time-from", "`timestamp` of the oldest message to export (i.e. 2025-05-01T00:00:00)")
	fs.Var(&p.latest, "time-to", "`timestamp` of the latest message to export (i.e. 2025-05-04T23:59:59)")
	fs.DurationVar(&p.watchInterval, "poll", whatsdump.DefWatchInterval, "watch poll `interval`.")

	// rate limits
	fs.IntVar(&p.cfg.Limits.Workers, "workers", p.cfg.Limits.Workers, "number of concurrent chat fetchers for the dump.")
	fs.IntVar(&p.cfg.Limits.MessagesPerMinute, "mpm", p.cfg.Limits.MessagesPerMinute, "message request budget per minute.")
	fs.IntVar(&p.cfg.Limits.ChatsPerMinute, "cpm", p.cfg.Limits.ChatsPerMinute, "chat listing budget per minute.")

	// phone for pre-authorised pairing
	fs.StringVar(&p.cfg.Phone, "phone", p.cfg.Phone, "phone `number` in international format for pairing (environment: "+envPhone+")")

	// main executable parameters
	fs.StringVar(&p.logFile, "log", osenv.Value("LOG_FILE", ""), "log `file`, if not specified, messages are printed to STDERR")
	fs.StringVar(&p.traceFile, "trace", osenv.Value("TRACE_FILE", ""), "trace `file` (optional)")
	fs.BoolVar(&p.printVersion, "V", false, "print version and exit")
	fs.BoolVar(&p.verbose, "v", osenv.Value("DEBUG", false), "verbose messages")

	os.Unsetenv(envAuthToken)

	if err := fs.Parse(args); err != nil {
		return p, err
	}
	p.jids = fs.Args()

	// flags the user has set explicitly, they win over the configuration
	// file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	return p, p.validate(set)
}

// validate checks if the parameters are valid and layers the configuration
// file under the explicitly set flags.
func (p *params) validate(set map[string]bool) error {
	if p.printVersion || p.sampleConfig {
		return nil
	}
	if p.cfgFile != "" {
		flags := p.cfg
		cfg, err := whatsdump.LoadConfig(p.cfgFile)
		if err != nil {
			return err
		}
		p.cfg = cfg
		if set["server"] {
			p.cfg.Server.Endpoint = flags.Server.Endpoint
		}
		if set["token"] {
			p.cfg.Server.AuthToken = flags.Server.AuthToken
		}
		if set["phone"] {
			p.cfg.Phone = flags.Phone
		}
		if set["workers"] {
			p.cfg.Limits.Workers = flags.Limits.Workers
		}
		if set["mpm"] {
			p.cfg.Limits.MessagesPerMinute = flags.Limits.MessagesPerMinute
		}
		if set["cpm"] {
			p.cfg.Limits.ChatsPerMinute = flags.Limits.ChatsPerMinute
		}
	}
	if p.export != "" && len(p.jids) != 1 {
		return fmt.Errorf("-export needs exactly one chat JID, got %d", len(p.jids))
	}
	if p.info && len(p.jids) == 0 {
		return fmt.Errorf("-info needs at least one chat JID")
	}
	if p.search != "" && len(p.jids) > 1 {
		return fmt.Errorf("-search accepts at most one chat JID, got %d", len(p.jids))
	}
	return nil
}

// banner prints the program banner.
func banner(w io.Writer) {
	fmt.Fprintf(w, bannerFmt, build, buildYear, trunc(commit, 7))
}

// trunc truncates string s to n chars.
func trunc(s string, n uint) string {
	if uint(len(s)) <= n {
		return s
	}
	return s[:n]
}
