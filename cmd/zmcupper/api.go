package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"

	"github.com/PongKJ/zmc-controller-upper/driver"
	"github.com/PongKJ/zmc-controller-upper/runner"
	"github.com/PongKJ/zmc-controller-upper/session"
)

type api struct {
	http.Handler
	sess    *session.Manager
	run     *runner.Runner
	dataDir string
	sse     *sse.Server
}

// statePayload is what clients receive on /events/state.
type statePayload struct {
	session.Status
	ProgramID string `json:"programId"`
	Cursor    int    `json:"cursor"`
	Lines     int    `json:"lines"`
	Running   bool   `json:"running"`
}

func newAPI(sess *session.Manager, run *runner.Runner, dir string) *api {
	r := mux.NewRouter()

	a := &api{
		Handler: r,
		sess:    sess,
		run:     run,
		dataDir: dir,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(io.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/program", a.loadProgram).Methods("POST")
	r.HandleFunc("/api/run/start", a.startRun).Methods("POST")
	r.HandleFunc("/api/run/stop", a.stopRun).Methods("POST")
	r.HandleFunc("/api/run/reset", a.resetRun).Methods("POST")
	r.HandleFunc("/api/preview", a.preview).Methods("POST")

	r.HandleFunc("/api/session/open", a.openSession).Methods("POST")
	r.HandleFunc("/api/session/close", a.closeSession).Methods("POST")
	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/params", a.setParams).Methods("POST")

	r.HandleFunc("/api/path", a.getPath).Methods("GET")
	r.HandleFunc("/api/path/clear", a.clearPath).Methods("POST")

	r.HandleFunc("/api/jog", a.jog).Methods("POST")
	r.HandleFunc("/api/jog", a.cancelJog).Methods("DELETE")
	r.HandleFunc("/api/zero", a.zero).Methods("POST")
	r.HandleFunc("/api/spindle", a.spindle).Methods("POST")
	r.HandleFunc("/api/spindle", a.stopSpindle).Methods("DELETE")

	fs := http.FileServer(http.Dir(dir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			fs.ServeHTTP(w, req)
		case "PUT":
			a.putFile(w, req)
		case "DELETE":
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	r.PathPrefix("/events/").Handler(a.sse)
	go a.forwardState()

	return a
}

// forwardState mirrors each published status snapshot to SSE clients,
// and refreshes the path image while motion is in flight.
func (a *api) forwardState() {
	for state := range a.sess.State() {
		payload := statePayload{
			Status:    state,
			ProgramID: a.run.ProgramID(),
			Cursor:    a.run.Cursor(),
			Lines:     a.run.Len(),
			Running:   a.run.Running(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("ERROR: marshal state: %+v", err)
			continue
		}
		a.sse.SendMessage("/events/state", sse.SimpleMessage(string(data)))

		if state.Moving() {
			a.pushPath()
		}
	}
}

func (a *api) pushPath() {
	url, err := a.sess.Bitmap().DataURL()
	if err != nil {
		log.Printf("ERROR: encode path image: %+v", err)
		return
	}
	a.sse.SendMessage("/events/path", sse.SimpleMessage(url))
}

func apiError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch err {
	case runner.ErrAlreadyRunning, runner.ErrRunning, session.ErrNotOpen, session.ErrAlreadyOpen:
		code = http.StatusConflict
	}
	http.Error(w, err.Error(), code)
}

func (a *api) loadProgram(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return
	}
	id, err := a.run.Load(string(data))
	if err != nil {
		apiError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (a *api) startRun(w http.ResponseWriter, req *http.Request) {
	err := a.run.Start()
	if err != nil {
		log.Printf("ERROR: start run: %+v", err)
		apiError(w, err)
	}
}

func (a *api) stopRun(w http.ResponseWriter, req *http.Request) {
	a.run.Stop()
}

func (a *api) resetRun(w http.ResponseWriter, req *http.Request) {
	a.run.Reset()
}

func (a *api) preview(w http.ResponseWriter, req *http.Request) {
	url, err := a.run.Preview()
	if err != nil {
		log.Printf("ERROR: preview: %+v", err)
		apiError(w, err)
		return
	}
	a.sse.SendMessage("/events/path", sse.SimpleMessage(url))
	json.NewEncoder(w).Encode(map[string]string{"image": url})
}

func (a *api) openSession(w http.ResponseWriter, req *http.Request) {
	descriptor := req.FormValue("descriptor")
	if descriptor == "" {
		http.Error(w, "missing descriptor", http.StatusBadRequest)
		return
	}
	err := a.sess.Open(descriptor)
	if err != nil {
		log.Printf("ERROR: open session '%s': %+v", descriptor, err)
		apiError(w, err)
	}
}

func (a *api) closeSession(w http.ResponseWriter, req *http.Request) {
	err := a.sess.Close()
	if err != nil {
		log.Printf("ERROR: close session: %+v", err)
		apiError(w, err)
	}
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(statePayload{
		Status:    a.sess.Status(),
		ProgramID: a.run.ProgramID(),
		Cursor:    a.run.Cursor(),
		Lines:     a.run.Len(),
		Running:   a.run.Running(),
	})
}

func (a *api) setParams(w http.ResponseWriter, req *http.Request) {
	p := session.DefaultParams()
	_, err := toml.NewDecoder(req.Body).Decode(&p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err = a.sess.ApplyParams(p); err != nil {
		log.Printf("ERROR: apply params: %+v", err)
		apiError(w, err)
	}
}

func (a *api) getPath(w http.ResponseWriter, req *http.Request) {
	url, err := a.sess.Bitmap().DataURL()
	if err != nil {
		apiError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"image": url})
}

func (a *api) clearPath(w http.ResponseWriter, req *http.Request) {
	a.sess.ClearPath()
	a.pushPath()
}

func axisParam(req *http.Request) (int, bool) {
	switch strings.ToUpper(req.FormValue("axis")) {
	case "X", "0":
		return driver.AxisX, true
	case "Y", "1":
		return driver.AxisY, true
	case "Z", "2":
		return driver.AxisZ, true
	}
	return 0, false
}

func (a *api) jog(w http.ResponseWriter, req *http.Request) {
	axis, ok := axisParam(req)
	if !ok {
		http.Error(w, "invalid axis", http.StatusBadRequest)
		return
	}
	dir := 1
	if req.FormValue("direction") == "-1" {
		dir = -1
	}
	err := a.sess.Jog(axis, dir)
	if err != nil {
		log.Printf("ERROR: jog: %+v", err)
		apiError(w, err)
	}
}

func (a *api) cancelJog(w http.ResponseWriter, req *http.Request) {
	axis, ok := axisParam(req)
	if !ok {
		http.Error(w, "invalid axis", http.StatusBadRequest)
		return
	}
	err := a.sess.CancelJog(axis)
	if err != nil {
		log.Printf("ERROR: cancel jog: %+v", err)
		apiError(w, err)
	}
}

func (a *api) zero(w http.ResponseWriter, req *http.Request) {
	err := a.sess.Zero()
	if err != nil {
		log.Printf("ERROR: zero axes: %+v", err)
		apiError(w, err)
	}
}

func (a *api) spindle(w http.ResponseWriter, req *http.Request) {
	reverse := req.FormValue("reverse") == "1"
	err := a.sess.RunSpindle(reverse)
	if err != nil {
		log.Printf("ERROR: run spindle: %+v", err)
		apiError(w, err)
		return
	}
	if s := req.FormValue("frequency"); s != "" {
		hz, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "invalid frequency", http.StatusBadRequest)
			return
		}
		if err = a.sess.SetSpindleFrequency(hz); err != nil {
			log.Printf("ERROR: set spindle frequency: %+v", err)
			apiError(w, err)
		}
	}
}

func (a *api) stopSpindle(w http.ResponseWriter, req *http.Request) {
	err := a.sess.StopSpindle()
	if err != nil {
		log.Printf("ERROR: stop spindle: %+v", err)
		apiError(w, err)
	}
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.Println("invalid path '" + name + "'")
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	os.MkdirAll(filepath.Dir(name), 0755)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("ERROR: create '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		log.Printf("ERROR: write '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		log.Printf("ERROR: delete '%s': %+v", name, err)
		http.Error(w, err.Error(), 500)
		return
	}
}
