package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Shurtu-gal/studio/internal/httpapi"
	"github.com/Shurtu-gal/studio/internal/manager"
	"github.com/Shurtu-gal/studio/internal/problems"
	"github.com/Shurtu-gal/studio/internal/server"
	"github.com/Shurtu-gal/studio/internal/settings"
	"github.com/Shurtu-gal/studio/internal/store"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	versionFlag := flag.Bool("version", false, "Print the version of the program")
	logfileFlag := flag.String("logfile", "", "Path to log file")
	configFlag := flag.String("config", "", "Path to a settings file")
	dbFlag := flag.String("db", "", "Path to the sqlite store (defaults to the XDG state directory)")
	redisFlag := flag.String("redis", "", "Address of a redis server to use as the store")
	httpFlag := flag.String("http", "", "Address to serve the HTTP API on, e.g. :7070")
	workspaceFlag := flag.String("workspace", "", "Directory whose JSON and YAML documents are imported at startup")
	persistFlag := flag.Duration("persist", time.Minute, "Interval between session snapshots")
	verboseFlag := flag.Int("verbose", 1, "Log verbosity for commonlog")
	flag.Parse()

	// Version tag
	if *versionFlag {
		fmt.Printf("studio language server version %s\n", Version)
		return
	}

	runtime.GOMAXPROCS(4)

	// Logging
	if *logfileFlag != "" {
		logFile, err := os.OpenFile(*logfileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(logFile)
		log.SetFlags(log.Ldate | log.Ltime | log.Llongfile)
		commonlog.Configure(*verboseFlag, logfileFlag)
	} else {
		// stdout carries the protocol
		log.SetOutput(io.Discard)
		commonlog.Configure(*verboseFlag, nil)
	}
	log.Println("Starting studio language server...")

	// Store
	st, err := openStore(*dbFlag, *redisFlag)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Settings
	src, err := settings.NewSource(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	src.Watch()

	mgr := manager.NewDocumentManager(manager.Config{
		Store:    st,
		Settings: src,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	})
	if n, err := mgr.RestoreSession(context.Background()); err != nil {
		log.Printf("Failed to restore session: %v", err)
	} else if n > 0 {
		log.Printf("Restored %d documents", n)
	}
	if *workspaceFlag != "" {
		results, err := mgr.ImportDir(context.Background(), "", *workspaceFlag)
		if err != nil {
			log.Printf("Workspace import incomplete: %v", err)
		}
		log.Printf("Imported %d documents from %s", len(results), *workspaceFlag)
	}
	mgr.PersistEvery(*persistFlag)

	// HTTP API
	var httpServer *http.Server
	if *httpFlag != "" {
		hub := problems.NewHub()
		mgr.Widget().AddMarkerSink(hub)
		httpServer = &http.Server{
			Addr:              *httpFlag,
			Handler:           httpapi.NewRouter(mgr, hub),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Serving HTTP API on %s", *httpFlag)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server error: %v", err)
			}
		}()
	}

	shutdown := func() {
		if httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			httpServer.Shutdown(ctx)
			cancel()
		}
		mgr.Shutdown(5 * time.Second)
	}

	server.Version = Version
	lsp := server.New(mgr, func() {
		shutdown()
		st.Close()
		os.Exit(0)
	})

	// Run the server
	if err := lsp.RunStdio(); err != nil {
		log.Printf("Server error: %v", err)
	}
	shutdown()
}

func openStore(dbPath, redisAddr string) (store.Store, error) {
	if redisAddr != "" {
		return store.Open(store.Config{
			Driver:   store.DriverRedis,
			Addr:     redisAddr,
			Password: os.Getenv("STUDIO_REDIS_PASSWORD"),
			Prefix:   "studio:",
		})
	}
	if dbPath == "" {
		stateDir, err := server.StateDir("studio")
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(stateDir, "studio.db")
	}
	return store.Open(store.Config{Driver: store.DriverSQLite, DBPath: dbPath})
}
