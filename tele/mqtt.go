package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/temoto/teleinfo/helpers"
	"github.com/temoto/teleinfo/log2"
	"github.com/temoto/teleinfo/sensor"
	tele_config "github.com/temoto/teleinfo/tele/config"
)

const defaultNetworkTimeout = 30 * time.Second
const publishQueueDepth = 256

// mqttTeler publishes each sensor event as JSON to
// <topic_prefix>/<label>; availability goes to <topic_prefix>/status
// (online/offline with broker will), decode errors to
// <topic_prefix>/error. Event only queues; a worker goroutine talks
// to the broker so a slow link never backs up into the decode path.
type mqttTeler struct {
	alive *alive.Alive
	log   *log2.Log
	m     mqtt.Client
	mopt  *mqtt.ClientOptions

	topicPrefix string
	topicStatus string
	topicError  string
	qos         byte
	retain      bool
	queue       chan publication
}

type publication struct {
	topic   string
	payload []byte
}

type eventEnvelope struct {
	Label  string      `json:"label"`
	Name   string      `json:"name"`
	Value  interface{} `json:"value"`
	Unit   string      `json:"unit,omitempty"`
	Stamp  string      `json:"stamp,omitempty"`
	Reason string      `json:"reason"`
	Ts     int64       `json:"ts"`
}

func (self *mqttTeler) Init(ctx context.Context, log *log2.Log, config tele_config.Config) error {
	self.log = log
	mqttLog := log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if config.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	clientId := config.MeterId
	if clientId == "" {
		clientId = "teleinfo"
	}
	self.topicPrefix = config.TopicPrefix
	if self.topicPrefix == "" {
		self.topicPrefix = clientId
	}
	self.topicStatus = fmt.Sprintf("%s/status", self.topicPrefix)
	self.topicError = fmt.Sprintf("%s/error", self.topicPrefix)
	self.qos = byte(config.Qos)
	self.retain = config.Retain

	networkTimeout := helpers.IntSecondDefault(config.NetworkTimeoutSec, defaultNetworkTimeout)
	if networkTimeout < 1*time.Second {
		networkTimeout = 1 * time.Second
	}
	connectTimeout := networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(config.KeepaliveSec, networkTimeout/2)

	credFun := func() (string, string) {
		return clientId, config.MqttPassword
	}
	defaultHandler := func(_ mqtt.Client, msg mqtt.Message) {
		self.log.Errorf("unexpected mqtt message: %v", msg)
	}

	tlsconf := new(tls.Config)
	if config.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(config.TlsCaFile)
		if err != nil {
			return errors.Annotatef(err, "tele: tls_ca_file=%s", config.TlsCaFile)
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}

	self.mopt = mqtt.NewClientOptions().
		AddBroker(config.MqttBroker).
		SetAutoReconnect(true).
		SetBinaryWill(self.topicStatus, []byte("offline"), self.qos, true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetConnectTimeout(connectTimeout).
		SetCredentialsProvider(credFun).
		SetDefaultPublishHandler(defaultHandler).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetOrderMatters(false).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout).
		SetOnConnectHandler(func(c mqtt.Client) {
			c.Publish(self.topicStatus, self.qos, true, []byte("online"))
		})
	self.m = mqtt.NewClient(self.mopt)

	self.alive = alive.NewAlive()
	self.queue = make(chan publication, publishQueueDepth)
	if !self.alive.Add(1) {
		return errors.Errorf("code error tele: Init after Close")
	}
	go self.worker()
	return nil
}

func (self *mqttTeler) Close() {
	self.alive.Stop()
	self.alive.Wait()
	self.m.Disconnect(uint(self.mopt.PingTimeout / time.Millisecond))
}

func (self *mqttTeler) Event(e sensor.Event) {
	env := eventEnvelope{
		Label:  e.Label,
		Name:   e.Name,
		Reason: e.Reason.String(),
		Ts:     time.Now().Unix(),
	}
	switch e.Value.Kind {
	case sensor.KindInt:
		env.Value = e.Value.Int
	case sensor.KindString, sensor.KindEnum:
		env.Value = e.Value.Str
	case sensor.KindStatus:
		env.Value = fmt.Sprintf("%08x", e.Value.Status.Raw)
	case sensor.KindStamped:
		env.Value = e.Value.Int
		env.Stamp = string(e.Value.Stamp)
	default:
		env.Value = e.Value.String()
	}
	payload, err := json.Marshal(env)
	if err != nil {
		self.log.Errorf("tele: marshal event=%v err=%v", e, err)
		return
	}
	self.enqueue(fmt.Sprintf("%s/%s", self.topicPrefix, e.Label), payload)
}

func (self *mqttTeler) Error(e error) {
	self.enqueue(self.topicError, []byte(e.Error()))
}

// enqueue never blocks; on a full queue the oldest unsent publication
// is dropped, the current sensor value will come around again.
func (self *mqttTeler) enqueue(topic string, payload []byte) {
	p := publication{topic: topic, payload: payload}
	for {
		select {
		case self.queue <- p:
			return
		default:
		}
		select {
		case dropped := <-self.queue:
			self.log.Errorf("tele: queue full, dropped topic=%s", dropped.topic)
		default:
		}
	}
}

func (self *mqttTeler) worker() {
	defer self.alive.Done()
	stopch := self.alive.StopChan()

	for !self.m.IsConnected() {
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			break
		}
		select {
		case <-stopch:
			return
		case <-time.After(1 * time.Second):
		}
	}

	for {
		select {
		case <-stopch:
			return
		case p := <-self.queue:
			t := self.m.Publish(p.topic, self.qos, self.retain, p.payload)
			_ = self.tokenWait(t, "publish:"+p.topic)
		}
	}
}

func (self *mqttTeler) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.mopt.WriteTimeout) {
		err := errors.Errorf("%s timeout", tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
