// Gmail sender exposes an authenticated template-send pipeline through Model
// Context Protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gmail-sender/internal/auth"
	"github.com/hal9000y/gmail-sender/internal/envelope"
	"github.com/hal9000y/gmail-sender/internal/gauth"
	"github.com/hal9000y/gmail-sender/internal/gservice"
	"github.com/hal9000y/gmail-sender/internal/kvstore"
	"github.com/hal9000y/gmail-sender/internal/send"
	"github.com/hal9000y/gmail-sender/internal/template"
	"github.com/hal9000y/gmail-sender/internal/tool"
)

type appConfig struct {
	OAuthClientID     string `envconfig:"OAUTH_GOOGLE_CLIENT_ID" required:"true"`
	OAuthClientSecret string `envconfig:"OAUTH_GOOGLE_CLIENT_SECRET" required:"true"`
	StorageQuota      int64  `envconfig:"STORAGE_QUOTA_BYTES" default:"5242880"`
	RedisAddr         string `envconfig:"REDIS_ADDR"`
	RedisPassword     string `envconfig:"REDIS_PASSWORD"`
	RedisDB           int    `envconfig:"REDIS_DB" default:"0"`
}

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP SERVER listen addr")
	oauthURLParam := flag.String("oauth-url", "", "OAuth URL")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	persistLogs := setupLogger(enableStdio, logFile)
	defer persistLogs()

	cfg := mustLoadConfig(envFileParam)

	ln := mustListen(httpAddr)

	oauthURL := fmt.Sprintf("http://%s/oauth", ln.Addr().String())
	if oauthURLParam != nil && *oauthURLParam != "" {
		oauthURL = *oauthURLParam
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		RedirectURL:  oauthURL,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}

	ctx := context.Background()

	store := mustCreateStore(ctx, cfg)

	provider := gauth.New(oauthCfg)
	provider.SetInteractivePrompt(func() { openBrowser(oauthURL) })
	provider.UseTokenStore(ctx, store)

	creds := auth.NewManager(provider, store, oauthCfg.Scopes)

	unsubscribe := creds.Subscribe(func(authenticated bool) {
		log.Println("Credential state changed, authenticated:", authenticated)
	})
	defer unsubscribe()

	templates := template.NewStore(store)
	transport := send.NewTransport(creds, gservice.NewMail(), envelope.New())
	pipeline := send.NewPipeline(transport, templates)

	srv := tool.NewServer(pipeline, templates, creds)
	mcpHTTP := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return srv }, nil)

	mux := http.NewServeMux()
	mux.Handle("/oauth", gauth.NewHTTPHandler(provider))
	mux.Handle("/mcp", mcpHTTP)

	httpSrv := &http.Server{
		Handler: mux,
	}

	shutdown := make(chan os.Signal, 1)

	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if !provider.HasToken() {
		log.Println("No authorization yet, consent page:", oauthURL+"?redirect=1")
	}

	stopHTTP, errHTTPCh := serveHTTP(httpSrv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(srv)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		log.Println("Error http server", err)
	case err := <-errStdioCh:
		log.Println("Error stdio", err)
	case <-shutdown:
		log.Println("Shutdown signal received")
	}
}

func serveStdio(srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Println("Starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			err = fmt.Errorf("srv.Run failed: %w", err)
			errStdioCh <- err
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Println("Stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.Println("Starting http server on", ln.Addr().String())

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.ListenAndServe failed: %w", err)
			log.Println(err)
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Println(fmt.Errorf("srv.Shutdown failed: %w", err))
		}

		<-errHTTPCh
		log.Println("HTTP server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr *string) net.Listener {
	if httpAddr == nil {
		panic("-http-addr must be provided")
	}

	ln, err := net.Listen("tcp", *httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func mustLoadConfig(envFileParam *string) appConfig {
	if envFileParam != nil && *envFileParam != "" {
		if err := godotenv.Load(*envFileParam); err != nil {
			panic(fmt.Errorf("godotenv.Load failed: %w", err))
		}
	}

	var cfg appConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(fmt.Errorf("envconfig.Process failed: %w", err))
	}

	return cfg
}

func mustCreateStore(ctx context.Context, cfg appConfig) kvstore.Store {
	if cfg.RedisAddr == "" {
		return kvstore.NewMemory(cfg.StorageQuota)
	}

	store, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   "gmail-sender:",
		Quota:    cfg.StorageQuota,
	})
	if err != nil {
		panic(fmt.Errorf("kvstore.NewRedis failed: %w", err))
	}

	return store
}

func setupLogger(enableStdio *bool, logFile *string) func() {
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		log.SetOutput(f)

		return func() {
			if err := f.Close(); err != nil {
				log.Println(fmt.Errorf("f.Close failed: %w", err))
			}
		}
	}

	if *enableStdio {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stdout)
	}

	return func() {}
}

func openBrowser(url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Printf("Could not open browser automatically: %v; please copy and open link in the browser: %s\n", err, url)
	}
}
