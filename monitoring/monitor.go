// Package monitoring serves the progress of an eviction set construction run
// over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/evset/hooking"
	"github.com/sarchlab/evset/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a run into a server that reports its progress. It only reads
// what hooks report and never touches the oracle.
type Monitor struct {
	portNumber int

	progressLock  sync.Mutex
	progress      Progress
	probeInterval ewma.MovingAverage
	lastProbe     time.Time

	listener net.Listener
	stopped  atomic.Bool
}

// probeIntervalAge is the number of probes the interval average spans.
const probeIntervalAge = 30

// Builder can build monitors.
type Builder struct {
	portNumber    int
	runID         string
	associativity int
}

// MakeBuilder creates a builder that picks a random port.
func MakeBuilder() Builder {
	return Builder{}
}

// WithPortNumber sets the port number of the monitor.
func (b Builder) WithPortNumber(portNumber int) Builder {
	if portNumber < 1000 && portNumber != 0 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	b.portNumber = portNumber

	return b
}

// WithRunID sets the ID reported with the progress.
func (b Builder) WithRunID(id string) Builder {
	b.runID = id
	return b
}

// WithAssociativity sets the size that the reduction aims at.
func (b Builder) WithAssociativity(a int) Builder {
	b.associativity = a
	return b
}

// Build creates a monitor.
func (b Builder) Build() *Monitor {
	now := time.Now()

	return &Monitor{
		portNumber:    b.portNumber,
		probeInterval: ewma.NewMovingAverage(probeIntervalAge),
		progress: Progress{
			RunID:         b.runID,
			Phase:         PhaseIdle,
			Associativity: b.associativity,
			StartTime:     now,
			UpdateTime:    now,
		},
	}
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgress)
	r.HandleFunc("/api/progress/detail", m.progressDetail)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", "localhost:"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	m.listener = listener

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring eviction set construction with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		if err != nil && !m.stopped.Load() {
			log.Print(err)
		}
	}()

	return url, nil
}

// StopServer closes the listener opened by StartServer.
func (m *Monitor) StopServer() error {
	if m.listener == nil {
		return nil
	}

	m.stopped.Store(true)

	l := m.listener
	m.listener = nil

	return l.Close()
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.Progress())
}

func (m *Monitor) progressDetail(w http.ResponseWriter, _ *http.Request) {
	p := m.Progress()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&p)
	serializer.SetMaxDepth(1)

	w.Header().Set("Content-Type", "application/json")

	if err := serializer.Serialize(w); err != nil {
		log.Print(err)
	}
}

// ResourceUsage is the CPU and memory consumption of the running process.
type ResourceUsage struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSS        uint64  `json:"memory_size"`
}

func currentResourceUsage() (ResourceUsage, error) {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return ResourceUsage{}, err
	}

	cpu, err := self.CPUPercent()
	if err != nil {
		return ResourceUsage{}, err
	}

	mem, err := self.MemoryInfo()
	if err != nil {
		return ResourceUsage{}, err
	}

	return ResourceUsage{CPUPercent: cpu, RSS: mem.RSS}, nil
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	usage, err := currentResourceUsage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, usage)
}

// profileWindow is how long /api/profile samples the CPU.
const profileWindow = time.Second

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	var raw bytes.Buffer

	if err := pprof.StartCPUProfile(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(profileWindow)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(raw.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		log.Print(err)
	}
}

var _ hooking.Hook = (*Monitor)(nil)
