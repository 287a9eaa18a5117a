package gap

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

// Publisher hands events to the message broker, delivery is the broker's business.
type Publisher interface {
	Publish(topic, key string, payload []byte) error
}

type NatsNotifier struct {
	conn *nats.Conn
}

func NewNatsNotifier() (*NatsNotifier, error) {
	url := viper.GetString("notify.nats_url")
	if len(url) == 0 {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url, nats.Name("circle"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %v", err)
	}
	return &NatsNotifier{conn: conn}, nil
}

func (v *NatsNotifier) Publish(topic, key string, payload []byte) error {
	msg := nats.NewMsg(topic)
	msg.Header.Set("Key", key)
	msg.Data = payload
	return v.conn.PublishMsg(msg)
}

func (v *NatsNotifier) Close() {
	v.conn.Close()
}
