package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync"

	"github.com/fscifa/totepipe/logger"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

var ErrStageBusy = errors.New("a stage is already running")

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseStageRun struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Results []*StageResult    `json:"results"`
}

// StageRunner runs the stage in a request.
type StageRunner func(ctx context.Context, req StageRequest) ([]*StageResult, error)

// NewStageRunner returns a StageRunner that runs one stage at a time against env.
func NewStageRunner(env *Env) StageRunner {
	var mu sync.Mutex
	return func(ctx context.Context, req StageRequest) ([]*StageResult, error) {
		if !mu.TryLock() {
			return nil, ErrStageBusy
		}
		defer mu.Unlock()
		defer env.Close()
		return RunStage(ctx, env, req)
	}
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		chanStop <- "stop"
		log.Info("Stop signal sent")
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerStageRun runs the stage named in the URL. An optional JSON body may
// override the tables to extract, e.g. {"tables": ["staff"]}.
func GetHandlerStageRun(log logger.Logger, runner StageRunner) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := make(map[string]interface{})
		b, _ := ioutil.ReadAll(r.Body)
		if len(b) > 0 {
			if err := json.Unmarshal(b, &payload); err != nil {
				logAndRespond(log, err, w, http.StatusBadRequest,
					ResponseStageRun{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
				return
			}
		}
		payload["stage"] = mux.Vars(r)["stage"]
		req, err := DecodeStageRequest(payload)
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest, ResponseStageRun{Status: Error, Message: err.Error()})
			return
		}
		results, err := runner(r.Context(), req)
		switch {
		case errors.Is(err, ErrUnknownStage):
			logAndRespond(log, err, w, http.StatusNotFound, ResponseStageRun{Status: Error, Message: err.Error()})
		case errors.Is(err, ErrStageBusy):
			logAndRespond(log, err, w, http.StatusConflict, ResponseStageRun{Status: Error, Message: err.Error()})
		case err != nil:
			logAndRespond(log, err, w, http.StatusInternalServerError,
				ResponseStageRun{Status: Error, Message: err.Error(), Results: results})
		default:
			w.WriteHeader(http.StatusOK)
			respond(log, w, ResponseStageRun{Status: Okay, Message: "stage complete", Results: results})
		}
	}
}

// logAndRespond will log the error, write the status code and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, code int, r ResponseStageRun) {
	log.Error(err)
	w.WriteHeader(code)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Panic(err)
	}
	_, err = fmt.Fprint(w, string(j))
	if err != nil {
		log.Panic(err)
	}
}
