// Package web serves the dashboard: a paho subscriber keeps the latest
// report from the data topic in memory, HTTP hands it out as JSON next to
// a static page. No history, the broker's retained message covers restarts.
package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/hrpv/neeytele/helpers"
	"github.com/hrpv/neeytele/log2"
	"github.com/hrpv/neeytele/tele"
)

//go:embed index.html
var indexHTML []byte

// staleAfter marks /data responses when the poller stopped publishing.
const staleAfter = 30 * time.Second

type Server struct {
	log    *log2.Log
	listen string
	conf   tele.Config
	m      mqtt.Client
	srv    *http.Server

	mu         sync.Mutex
	latest     *tele.Report
	lastUpdate time.Time
}

func NewServer(log *log2.Log, listen string, conf tele.Config) *Server {
	if conf.TopicPrefix == "" {
		conf.TopicPrefix = tele.DefaultTopicPrefix
	}
	return &Server{
		log:    log,
		listen: listen,
		conf:   conf,
	}
}

func (self *Server) topicData() string {
	return fmt.Sprintf("%s/data", self.conf.TopicPrefix)
}

// Init connects the MQTT subscriber. Network errors are retried in
// background, only invalid config is fatal.
func (self *Server) Init(ctx context.Context) error {
	if self.conf.Broker == "" {
		return errors.NotValidf("tele.broker empty")
	}
	clientID := self.conf.ClientID
	if clientID == "" {
		clientID = tele.DefaultClientID + "-web"
	}
	keepAlive := helpers.IntSecondDefault(self.conf.KeepaliveSec, 60*time.Second)

	mopt := mqtt.NewClientOptions().
		AddBroker(self.conf.Broker).
		SetClientID(clientID).
		SetUsername(self.conf.Username).
		SetPassword(self.conf.Password).
		SetKeepAlive(keepAlive).
		SetOrderMatters(false).
		SetResumeSubs(true).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			self.log.Infof("mqtt disconnect err=%v", err)
		}).
		SetConnectRetry(true)
	self.m = mqtt.NewClient(mopt)
	if token := self.m.Connect(); token.Error() != nil {
		self.log.Errorf("mqtt connect err=%v", token.Error())
	}
	return nil
}

func (self *Server) onConnectHandler(c mqtt.Client) {
	topic := self.topicData()
	self.log.Infof("mqtt connect, subscribing topic=%s", topic)
	if token := c.Subscribe(topic, 1, self.onMessage); token.Wait() && token.Error() != nil {
		self.log.Errorf("mqtt subscribe topic=%s err=%v", topic, token.Error())
	}
}

func (self *Server) onMessage(c mqtt.Client, msg mqtt.Message) {
	self.store(msg.Payload())
}

func (self *Server) store(payload []byte) {
	r := new(tele.Report)
	if err := json.Unmarshal(payload, r); err != nil {
		self.log.Errorf("web drop malformed report err=%v", err)
		return
	}
	self.mu.Lock()
	self.latest = r
	self.lastUpdate = time.Now()
	self.mu.Unlock()
	self.log.Debugf("web report cells=%d total=%.2fV", len(r.Cells), r.Battery.TotalVoltage)
}

func (self *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", self.handleIndex)
	mux.HandleFunc("/data", self.handleData)
	return mux
}

// Run blocks serving HTTP until Close.
func (self *Server) Run() error {
	self.srv = &http.Server{Addr: self.listen, Handler: self.Handler()}
	self.log.Infof("web listen=%s", self.listen)
	err := self.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Annotate(err, "web server")
}

func (self *Server) Close() {
	if self.srv != nil {
		_ = self.srv.Close()
	}
	if self.m != nil {
		self.m.Disconnect(1000)
	}
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (self *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// dataResponse is the report plus freshness markers for the page.
type dataResponse struct {
	tele.Report
	Stale    bool `json:"stale"`
	LastSeen int  `json:"last_seen"`
}

func (self *Server) handleData(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	self.mu.Lock()
	latest := self.latest
	lastUpdate := self.lastUpdate
	self.mu.Unlock()

	resp := dataResponse{Stale: true}
	if latest != nil {
		age := time.Since(lastUpdate)
		resp.Report = *latest
		resp.Stale = age > staleAfter
		resp.LastSeen = int(age / time.Second)
	}
	if resp.Cells == nil {
		resp.Cells = []tele.CellReport{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(&resp); err != nil {
		self.log.Errorf("web encode err=%v", err)
	}
}
