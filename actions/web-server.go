package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fscifa/totepipe/helper"
	"github.com/fscifa/totepipe/logger"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

type WebServerConfig struct {
	Env    *Env   `errorTxt:"stage environment" mandatory:"yes"`
	Scheme string `errorTxt:"scheme" mandatory:"no"`
	Addr   net.IP `errorTxt:"address" mandatory:"no"`
	Port   int    `errorTxt:"port" mandatory:"yes"`
}

func RunWebServer(web *WebServerConfig) error {
	if web == nil {
		return errors.New("nil pointer to web server config supplied")
	}
	// Check if we have valid input params.
	if err := helper.ValidateStructIsPopulated(web); err != nil {
		return err
	}
	// Start the web server.
	srv, chanStopServer := runServer(web.Env.Log, web)
	// Block & wait for completion.
	return waitForServer(web.Env.Log, srv, chanStopServer)
}

// newRouter registers the routes served by RunWebServer.
func newRouter(log logger.Logger, runner StageRunner, chanStopServer chan string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/stop", GetHandlerStopServer(log, chanStopServer)).Methods(http.MethodPost)
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log))
	r.Path("/stages/{stage}").Methods(http.MethodPost).HandlerFunc(GetHandlerStageRun(log, runner))
	return r
}

// runServer starts a web server and returns:
// 1) the server; and
// 2) a channel that can be used to stop the web server
func runServer(log logger.Logger, web *WebServerConfig) (*http.Server, chan string) {
	chanStopServer := make(chan string, 1)
	runner := NewStageRunner(web.Env)
	srv := &http.Server{
		Addr:        fmt.Sprintf("%v:%v", web.Addr, web.Port),
		ReadTimeout: time.Second * 15,
		IdleTimeout: time.Second * 60,
		Handler:     newRouter(log, runner, chanStopServer),
	}
	// Run HTTP server non-blocking.
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				log.Info(err)
			} else {
				log.Panic(err)
			}
		}
	}()
	log.Info(fmt.Sprintf("Listening on %v://%v:%v", strings.ToLower(web.Scheme), web.Addr, web.Port))
	return srv, chanStopServer
}

func waitForServer(log logger.Logger, srv *http.Server, chanStopServer chan string) error {
	// Accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+\) will not be caught.
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	select {
	case <-chanStopServer:
	case <-chanOS:
	}
	fmt.Println() // print new line char for clean looking CLI.
	log.Info("Shutting down web server...")
	// Let a running stage finish its current table.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return srv.Shutdown(ctx)
}
