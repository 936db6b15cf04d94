package serve

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/jukebox/cmd/common"
	"github.com/gigurra/jukebox/cmd/common/app"
	"github.com/gigurra/jukebox/cmd/common/share"
	"github.com/gigurra/jukebox/cmd/play"
	"github.com/spf13/cobra"
)

type Params struct {
	Port    int    `short:"p" help:"Port to listen on." default:"8080"`
	Host    string `help:"Host interface to bind to. Use 0.0.0.0 to allow remotes on the local network." default:"localhost"`
	User    string `short:"u" optional:"true" help:"Username for basic auth. Requires --pass."`
	Pass    string `optional:"true" help:"Password for basic auth."`
	TLS     bool   `long:"tls" help:"Serve https with a self-signed certificate." default:"false"`
	NewCert bool   `long:"new-cert" help:"Force regenerate the TLS certificate." default:"false"`
	QR      bool   `short:"q" help:"Print a QR code of the remote url for phones." default:"false"`
	Catalog string `optional:"true" help:"Directory holding an alternative catalog."`
	Silent  bool   `help:"Do not output audio, only simulate playback." default:"false"`
	Verbose bool   `short:"v" help:"Log debug output." default:"false"`

	ReadTimeoutMillis int64 `help:"Maximum duration for reading the entire request, including the body (ms)." default:"5000"`
	IdleTimeoutMillis int64 `help:"Maximum amount of time to wait for the next request when keep-alives are enabled (ms)." default:"120000"`
	MaxHeaderBytes    int   `help:"Maximum number of bytes the server will read parsing the request header's keys and values." default:"1048576"` // 1MB
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "serve",
		Short: "Run the jukebox with a web remote and JSON API",
		Long: `Run a playback session controlled over HTTP.

The root page is a remote control for phones and browsers. Shared links
(see 'jukebox share') point here and ask to play the linked song.

API:
  GET  /api/state            current session
  GET  /api/views            all views
  GET  /api/songs            songs of the current view (view, q, sort, window select another)
  GET  /api/songs/stats?url= play statistics of a song
  GET  /api/comments?url=    comments on a song
  GET  /api/moments?url=     top moments of a song
  POST /api/commands         {"command": "next"} etc.
  GET  /ws                   live session updates, accepts commands`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(cmd.Context(), params, os.Stdout); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "serve: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(ctx context.Context, params *Params, stdout io.Writer) error {
	if (params.User == "") != (params.Pass == "") {
		return fmt.Errorf("--user and --pass must be given together")
	}
	common.SetupLogging(params.Verbose, true)

	var tlsConfig *tls.Config
	if params.TLS {
		if params.NewCert {
			if err := deleteCerts(); err != nil {
				return fmt.Errorf("failed to delete old certs: %w", err)
			}
		}
		cfg, fingerprint, err := loadOrGenerateCert(stdout)
		if err != nil {
			return fmt.Errorf("failed to set up TLS certificate: %w", err)
		}
		fmt.Fprintf(stdout, "  fingerprint: %s\n", fingerprint)
		tlsConfig = cfg
	}

	a, err := app.Open(params.Catalog, play.Audio(params.Silent))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.Start(ctx)

	srv := NewServer(a, params.User, params.Pass)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		srv.ServeHTTP(rw, r)
		fmt.Fprintf(stdout, "[%d] %s %s (%v)\n", rw.status, r.Method, r.URL.Path, time.Since(start))
	})

	addr := net.JoinHostPort(params.Host, fmt.Sprint(params.Port))
	server := &http.Server{
		Addr:           addr,
		Handler:        handler,
		TLSConfig:      tlsConfig,
		ReadTimeout:    time.Duration(params.ReadTimeoutMillis) * time.Millisecond,
		IdleTimeout:    time.Duration(params.IdleTimeoutMillis) * time.Millisecond,
		MaxHeaderBytes: params.MaxHeaderBytes,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	urls := remoteURLs(scheme, params.Host, ln.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(stdout, "Jukebox remote at %s\n", urls[0])
	for _, u := range urls[1:] {
		fmt.Fprintf(stdout, "  also at %s\n", u)
	}
	if params.User != "" {
		fmt.Fprintf(stdout, "  auth: %s / ****\n", params.User)
	}
	if params.QR {
		if code, err := share.QR(urls[len(urls)-1]); err == nil {
			fmt.Fprint(stdout, code)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-serverErr:
		return err
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
