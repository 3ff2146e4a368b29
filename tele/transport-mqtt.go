package tele

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/hrpv/neeytele/helpers"
	"github.com/hrpv/neeytele/log2"
)

const networkTimeout = 30 * time.Second

type transportMqtt struct {
	log  *log2.Log
	m    mqtt.Client
	mopt *mqtt.ClientOptions

	topicPrefix string
	topicOnline string
	topicData   string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, conf Config) error {
	self.log = log
	mqtt.ERROR = log
	mqtt.CRITICAL = log
	mqtt.WARN = log
	if conf.LogDebug {
		mqtt.DEBUG = log
	}

	if conf.Broker == "" {
		return errors.NotValidf("tele.broker empty")
	}
	clientID := conf.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	self.topicPrefix = conf.TopicPrefix
	self.topicOnline = fmt.Sprintf("%s/online", self.topicPrefix)
	self.topicData = fmt.Sprintf("%s/data", self.topicPrefix)

	keepAlive := helpers.IntSecondDefault(conf.KeepaliveSec, 60*time.Second)
	pingTimeout := helpers.IntSecondDefault(conf.PingTimeoutSec, 30*time.Second)
	retryInterval := helpers.IntSecondDefault(conf.KeepaliveSec/2, 30*time.Second)

	self.mopt = mqtt.NewClientOptions().
		AddBroker(conf.Broker).
		SetBinaryWill(self.topicOnline, []byte("0"), 1, true).
		SetCleanSession(false).
		SetClientID(clientID).
		SetUsername(conf.Username).
		SetPassword(conf.Password).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetOrderMatters(false).
		SetResumeSubs(true).
		SetConnectRetryInterval(retryInterval).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler).
		SetConnectRetry(true)
	if conf.StorePath != "" {
		self.mopt.SetStore(mqtt.NewFileStore(conf.StorePath))
	}
	self.m = mqtt.NewClient(self.mopt)
	if token := self.m.Connect(); token.Error() != nil {
		// network errors are retried in background, only config is fatal
		self.log.Errorf("mqtt connect err=%v", token.Error())
	}
	return nil
}

func (self *transportMqtt) Close() {
	if self.m == nil {
		return
	}
	self.m.Publish(self.topicOnline, 1, true, []byte("0"))
	self.m.Disconnect(uint(networkTimeout / time.Millisecond))
}

func (self *transportMqtt) SendReport(payload []byte) bool {
	token := self.m.Publish(self.topicData, 1, true, payload)
	if !token.WaitTimeout(networkTimeout) {
		return false
	}
	if err := token.Error(); err != nil {
		self.log.Errorf("mqtt publish topic=%s err=%v", self.topicData, err)
		return false
	}
	return true
}

func (self *transportMqtt) SendScalar(topicSuffix, payload string) bool {
	topic := fmt.Sprintf("%s/%s", self.topicPrefix, topicSuffix)
	self.m.Publish(topic, 1, true, payload)
	return true
}

func (self *transportMqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Infof("mqtt disconnect err=%v", err)
}

func (self *transportMqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connect broker=%s", self.mopt.Servers)
	c.Publish(self.topicOnline, 1, true, []byte("1"))
}
