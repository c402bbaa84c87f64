package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	sessionApp "storefront/internal/application/session"
)

// Publisher 將 session 生命週期事件送往 Kafka，供稽核管線消費。
// 發送為非同步，失敗僅記 log，不影響請求路徑。
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	now      func() time.Time
}

// record 為稽核訊息的 JSON 結構。
type record struct {
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	State      string `json:"state"`
	OccurredAt string `json:"occurred_at"`
}

// NewPublisher 建立 Kafka 稽核發佈器並啟動錯誤監聽。
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Errors = true
	cfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	p := &Publisher{producer: producer, topic: topic, now: time.Now}
	go func() {
		for err := range producer.Errors() {
			log.Printf("[Audit] publish failed topic=%s err=%v", topic, err.Err)
		}
	}()
	return p, nil
}

// SessionStateChanged 實作 session Sink。
func (p *Publisher) SessionStateChanged(ev sessionApp.Event) {
	payload, err := json.Marshal(record{
		SessionID:  ev.SessionID,
		UserID:     ev.UserID,
		State:      string(ev.Status.State),
		OccurredAt: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("[Audit] marshal failed session=%s err=%v", ev.SessionID, err)
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.UserID),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close 結束發佈器，排空未送出的訊息。
func (p *Publisher) Close() error {
	return p.producer.Close()
}
